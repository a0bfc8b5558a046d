// ABOUTME: Version information for audition
// ABOUTME: Product identity reported over HTTP, mDNS and in the startup log
package version

const (
	// Version is the release version
	Version = "0.1.0"

	// Product is the product name
	Product = "Audition"

	// Manufacturer identifies who builds it
	Manufacturer = "harperreed"
)

// UserAgent is sent with outbound HTTP requests
func UserAgent() string {
	return Product + "/" + Version
}
