// Package output provides functions to print messages with optional color formatting
package output

import (
	"fmt"
	"strings"

	"github.com/berth-cd/berth/domain"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

const (
	Plain   = color.FgWhite
	Success = color.FgGreen
	Warning = color.FgYellow
	Error   = color.FgRed
)

var maybeColorize func(kind color.Attribute, tmpl string, a ...any) string

// InitColors sets up color functions based on environment
func InitColors(isColorDisabled bool) {
	// Check if colors should be enabled
	if color.NoColor || isColorDisabled {
		// Fallback to plain formatting if colors are not supported
		maybeColorize = func(kind color.Attribute, tmpl string, a ...any) string {
			return fmt.Sprintf(tmpl, a...)
		}
	} else {
		// Enable colors
		maybeColorize = func(kind color.Attribute, tmpl string, a ...any) string {
			return color.New(kind).SprintfFunc()(tmpl, a...)
		}
	}
}

// PrintMessage formats a message with color (if enabled) and returns it
func PrintMessage(kind color.Attribute, tmpl string, a ...any) string {
	if maybeColorize == nil || kind == Plain {
		return fmt.Sprintf(tmpl+"\n", a...)
	}
	return fmt.Sprintln(maybeColorize(kind, tmpl, a...))
}

// FprintPlain writes a plain message to the command's output stream
func FprintPlain(cmd *cobra.Command, tmpl string, a ...any) error {
	_, err := fmt.Fprint(cmd.OutOrStdout(), PrintMessage(Plain, tmpl, a...))
	return err
}

// FprintSuccess writes a success message to the command's output stream
func FprintSuccess(cmd *cobra.Command, tmpl string, a ...any) error {
	_, err := fmt.Fprint(cmd.OutOrStdout(), PrintMessage(Success, tmpl, a...))
	return err
}

// FprintWarning writes a warning message to the command's output stream
func FprintWarning(cmd *cobra.Command, tmpl string, a ...any) error {
	_, err := fmt.Fprint(cmd.OutOrStdout(), PrintMessage(Warning, tmpl, a...))
	return err
}

// FprintError writes an error message to the command's error stream
func FprintError(cmd *cobra.Command, tmpl string, a ...any) error {
	_, err := fmt.Fprint(cmd.ErrOrStderr(), PrintMessage(Error, tmpl, a...))
	return err
}

func PrintTable(header []string, data [][]string) (string, error) {
	buf := strings.Builder{}

	table := tablewriter.NewTable(
		&buf,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines: tw.Lines{
					ShowHeaderLine: tw.Off,
				},
				Separators: tw.Separators{
					BetweenColumns: tw.Off,
				},
			},
		})),
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{PerColumn: []tw.Align{tw.AlignRight, tw.AlignLeft}},
			},
		}))

	if len(header) > 0 {
		table.Header(header)
	}

	if err := table.Bulk(data); err != nil {
		return "", fmt.Errorf("bulk adding data to table: %w", err)
	}

	if err := table.Render(); err != nil {
		return "", fmt.Errorf("rendering table: %w", err)
	}

	return buf.String(), nil
}

// PrintSlotDetails renders the full status of one slot
func PrintSlotDetails(slot *domain.Slot) (string, error) {
	data := [][]string{
		{"Name", slot.Name},
		{"Phase", slot.Phase.String()},
		{"Current Container", derefOr(slot.CurrentContainerID, "none")},
		{"Previous Container", derefOr(slot.PreviousContainerID, "none")},
	}

	if slot.CurrentImageID != "" {
		data = append(data, []string{"Image ID", slot.CurrentImageID})
	}
	if slot.LastGoodPlan != nil {
		data = append(data, []string{"Image", slot.LastGoodPlan.Image})
	}
	if slot.LastError != nil {
		data = append(data, []string{"Last Error", *slot.LastError})
	}
	data = append(data,
		[]string{"Created At", slot.CreatedAt.Format("2006-01-02 15:04:05")},
		[]string{"Updated At", slot.UpdatedAt.Format("2006-01-02 15:04:05")},
	)

	return PrintTable(nil, data)
}

// PrintSlotList renders the summary table of all slots
func PrintSlotList(slots []*domain.Slot) (string, error) {
	if len(slots) == 0 {
		return PrintMessage(Plain, "No slots found."), nil
	}

	header := []string{
		"Name",
		"Phase",
		"Image",
		"Updated At",
	}
	var data [][]string
	for _, slot := range slots {
		image := ""
		if slot.LastGoodPlan != nil {
			image = slot.LastGoodPlan.Image
		}
		data = append(data, []string{
			slot.Name,
			slot.Phase.String(),
			image,
			slot.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	table, err := PrintTable(header, data)
	if err != nil {
		return "", fmt.Errorf("printing slot list table: %w", err)
	}

	return table, nil
}

// PrintHistory renders the audit trail of deployment attempts for a slot
func PrintHistory(deployments []*domain.Deployment) (string, error) {
	if len(deployments) == 0 {
		return PrintMessage(Plain, "No deployments found."), nil
	}

	header := []string{
		"ID",
		"Image",
		"Status",
		"Created At",
	}
	var data [][]string
	for _, deployment := range deployments {
		data = append(data, []string{
			deployment.ID.String(),
			deployment.Image,
			deployment.Status.String(),
			deployment.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	table, err := PrintTable(header, data)
	if err != nil {
		return "", fmt.Errorf("printing history table: %w", err)
	}

	return table, nil
}

func derefOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

// CLI flag for disabling color output

// NoColor is a flag that can be used to disable colored output in the CLI.
var NoColor = &noColorFlag{set: false}

type noColorFlag struct {
	set bool
}

func (f *noColorFlag) Set(value string) error {
	// This is a boolean flag, so we ignore the value and just mark it as set
	f.set = true
	return nil
}

func (f *noColorFlag) String() string {
	if f.set {
		return "true"
	}
	return "false"
}

func (f *noColorFlag) Type() string {
	return "bool"
}

// IsSet returns true if the --no-color flag was explicitly set
func (f *noColorFlag) IsSet() bool {
	return f.set
}

// IsBoolFlag tells pflag this is a boolean flag (no argument required)
func (f *noColorFlag) IsBoolFlag() bool {
	return true
}
