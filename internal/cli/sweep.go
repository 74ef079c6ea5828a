package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/someoneelse131/purfacted-sub002/internal/daemon"
)

var (
	sweepElection   bool
	sweepInactivity bool
	sweepFlags      bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one batch pass (election, inactivity, auto-flagging)",
	Long: `Run the periodic batch passes once and exit. Useful for external
schedulers that prefer cron over the built-in tickers. With no flags all
three passes run, election first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.DB.Close()

		all := !sweepElection && !sweepInactivity && !sweepFlags

		if sweepElection || all {
			result, err := d.Election.RunElection()
			if err != nil {
				return err
			}
			fmt.Printf("election: phase=%s cutoff=%d promoted=%d demoted=%d\n",
				result.Phase, result.Cutoff, len(result.Promoted), len(result.Demoted))
		}
		if sweepInactivity || all {
			result, err := d.Election.InactivitySweep()
			if err != nil {
				return err
			}
			fmt.Printf("inactivity: demoted=%d promoted=%d\n", len(result.Demoted), len(result.Promoted))
		}
		if sweepFlags || all {
			opened, err := d.Escalation.AutoFlagSweep()
			if err != nil {
				return err
			}
			fmt.Printf("autoflag: opened=%d\n", len(opened))
		}
		return nil
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepElection, "election", false, "run the election pass")
	sweepCmd.Flags().BoolVar(&sweepInactivity, "inactivity", false, "run the inactivity pass")
	sweepCmd.Flags().BoolVar(&sweepFlags, "flags", false, "run the auto-flagging pass")
	rootCmd.AddCommand(sweepCmd)
}
