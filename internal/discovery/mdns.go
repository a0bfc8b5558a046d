// ABOUTME: mDNS service discovery for audition studios
// ABOUTME: Advertises the HTTP API on the LAN and browses for other studios
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service type of an audition studio
const ServiceType = "_audition._tcp"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	Version     string
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	studios chan *StudioInfo
}

// StudioInfo describes a discovered studio
type StudioInfo struct {
	Name string
	Host string
	Port int
	Info []string
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		studios: make(chan *StudioInfo, 10),
	}
}

// TXTRecords returns the TXT entries advertised for this studio
func (m *Manager) TXTRecords() []string {
	txt := []string{"path=/api"}
	if m.config.Version != "" {
		txt = append(txt, "version="+m.config.Version)
	}
	return txt
}

// Advertise advertises this studio via mDNS until Stop is called
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		m.TXTRecords(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising mDNS service: %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse queries the LAN for studios once, delivering results on Studios()
// until timeout elapses
func (m *Manager) Browse(timeout time.Duration) error {
	entries := make(chan *mdns.ServiceEntry, 10)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			studio := &StudioInfo{
				Name: entry.Name,
				Port: entry.Port,
				Info: entry.InfoFields,
			}
			if entry.AddrV4 != nil {
				studio.Host = entry.AddrV4.String()
			} else if entry.AddrV6 != nil {
				studio.Host = entry.AddrV6.String()
			}

			log.Printf("Discovered studio: %s at %s:%d", studio.Name, studio.Host, studio.Port)

			select {
			case m.studios <- studio:
			case <-m.ctx.Done():
				return
			}
		}
	}()

	params := &mdns.QueryParam{
		Service: ServiceType,
		Domain:  "local",
		Timeout: timeout,
		Entries: entries,
	}

	err := mdns.Query(params)
	close(entries)
	<-done
	if err != nil {
		return fmt.Errorf("mdns query failed: %w", err)
	}
	return nil
}

// Studios returns the channel of discovered studios
func (m *Manager) Studios() <-chan *StudioInfo {
	return m.studios
}

// Stop stops the discovery manager
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
