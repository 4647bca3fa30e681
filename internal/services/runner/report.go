package runner

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/fgeck/pgshift/internal/models"
)

const summaryRounding = 100 * time.Millisecond

// printReport renders the end-of-run summary: backup artifacts, per-database
// outcomes and how to reconnect to the target.
func (s *Impl) printReport(summary *models.MigrationSummary) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	fmt.Fprintln(s.out)
	bold.Fprintln(s.out, "Migration summary")
	fmt.Fprintf(s.out, "  Backup directory: %s\n", summary.BackupDir)
	fmt.Fprintf(s.out, "  Duration:         %s\n", summary.Duration.Round(summaryRounding))

	fmt.Fprintln(s.out)
	bold.Fprintln(s.out, "Databases")
	restored := make(map[string]models.RestoreOutcome, len(summary.Restores))
	for _, r := range summary.Restores {
		restored[r.Database] = r
	}
	for _, b := range summary.Backups {
		outcome := restored[b.Database]
		if outcome.Restored {
			green.Fprintf(s.out, "  ✓ %s", b.Database)
		} else {
			red.Fprintf(s.out, "  ✗ %s", b.Database)
		}
		fmt.Fprintf(s.out, " (%s)", humanize.Bytes(uint64(b.SizeBytes)))
		if outcome.Error != nil {
			fmt.Fprintf(s.out, " — %v", outcome.Error)
		}
		fmt.Fprintln(s.out)
	}

	fmt.Fprintln(s.out)
	bold.Fprintln(s.out, "Target connection")
	fmt.Fprintf(s.out, "  Host:      localhost\n")
	fmt.Fprintf(s.out, "  Port:      %d\n", summary.Target.Port)
	fmt.Fprintf(s.out, "  User:      postgres\n")
	fmt.Fprintf(s.out, "  Container: %s (%s)\n", summary.Target.ContainerName, summary.State)
	if summary.Target.DataPath != "" {
		fmt.Fprintf(s.out, "  Data path: %s\n", summary.Target.DataPath)
	}
}
