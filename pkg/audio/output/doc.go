// ABOUTME: Audio output package for playing decoded buffers
// ABOUTME: Provides Device and Stream interfaces with oto and silent implementations
// Package output provides clocked audio playback devices.
//
// A Device exposes a free-running clock and prepares one Stream per run of a
// buffer. Oto plays through the system sound card; Silent keeps time without
// producing sound, for headless machines.
//
// Example:
//
//	dev := output.NewOto()
//	if err := dev.Init(24000, 1); err != nil {
//		return err
//	}
//	stream, err := dev.Open(buf, 1.5)
//	stream.Start(func(reason output.EndReason) { log.Printf("done: %v", reason) })
//	// ...
//	stream.Stop()
package output
