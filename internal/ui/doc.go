// Package ui provides terminal output components for the toonctl CLI.
//
// This package uses Bubble Tea, Bubbles and Lipgloss. Components follow a
// "run once and exit" pattern: they render a result and return, and never
// wait for user input.
//
//   - Result boxes: success and failure boxes with ordered detail rows and
//     troubleshooting tips
//   - Spinner: shown on stderr while an API call is in flight, only when
//     stdout is a terminal
//
// Example:
//
//	var resp *toon.Response
//	err := ui.RunWithSpinner(ctx, "Fetching thermostat state", func(ctx context.Context) error {
//	    var err error
//	    resp, err = client.GetState(ctx)
//	    return err
//	})
//
//	p := ui.NewPrinter(os.Stdout)
//	if err != nil {
//	    p.PrintError("Could not fetch state", err, toon.GetTroubleshootingHint(err))
//	    return err
//	}
//	p.PrintSuccess("Thermostat state", []ui.Detail{{Key: "Temperature", Value: "20.34°C"}})
package ui
