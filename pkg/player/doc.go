// ABOUTME: Playback controller package
// ABOUTME: Drives gapless play, pause, seek and track switches on an output device
// Package player auditions decoded buffers on an output.Device.
//
// Position is always the device clock minus the anchor taken when the
// current run started, so it never drifts from what is audible. Only one
// track is loaded at a time; playing another tears the first down before
// the second becomes audible.
//
// Example:
//
//	ctrl, err := player.New(player.Config{
//		Device: output.NewOto(),
//		OnPosition: func(id string, pos float64) {
//			fmt.Printf("%s at %.2fs\n", id, pos)
//		},
//	})
//	err = ctrl.Play("take-1", buf, 0)
//	ctrl.Pause()
//	err = ctrl.Seek(1.5)
//	err = ctrl.Resume()
package player
