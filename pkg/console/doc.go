// Package console implements the operator console of the metric bus: a
// line-oriented command dispatcher, the exclusive toggle command that
// switches between metric printers, and the printers themselves.
//
//	cpu := console.NewPrinter("cpu", os.Stdout, reports.ResourceUsageLayout)
//	tput := console.NewPrinter("tput", os.Stdout, reports.ThroughputLayout)
//	t, _ := console.NewExclusiveToggle("t", "toggle metric printers", os.Stdout, cpu, tput)
//	d, _ := console.NewDispatcher(os.Stdout, t)
//	_ = d.Run(ctx, os.Stdin)
//
// At most one printer of a toggle is enabled at any time.
package console
