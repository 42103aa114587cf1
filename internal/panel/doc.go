// Package panel brings MIPI-DSI panels built around the ILI9881C-class
// controller through their power lifecycle.
//
// A Panel moves between four states:
//
//	Unprepared --Prepare--> Prepared --Enable--> Enabled
//	     ^                                  |        |
//	     |                               Enable   Disable
//	     |                                  |        v
//	     +-------------Unprepare---------- Disabled <+
//
// Prepare powers the rail, pulses reset and replays the variant's command
// Script through an Interpreter. Enable and Disable run the sleep-out and
// sleep-in sequences. Unprepare asserts reset and removes power. Every
// register write is retried per RetryPolicy; a failed Enable or Disable
// raises the process-wide fault latch read by FaultLatched.
//
// Registers above the standard DCS range live on vendor pages. Scripts
// select pages explicitly with SwitchPage entries; PageRouter never tracks
// or skips page selects.
//
// Variants are compiled in and looked up by ID ("mt1280800a") or compatible
// string ("motivo,mt1280800a").
package panel
