package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var helpCmd = &cobra.Command{
	Use:   "help [command]",
	Short: "Show comprehensive help for timeclock",
	Long:  `Display detailed help for all timeclock commands, or the help of one command.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			target, _, err := cmd.Root().Find(args)
			if err == nil && target != nil && target != cmd.Root() {
				_ = target.Help()
				return
			}
		}
		showCustomHelp(cmd.OutOrStdout())
	},
}

func showCustomHelp(out io.Writer) {
	fmt.Fprint(out, `
████████╗██╗███╗   ███╗███████╗ ██████╗██╗      ██████╗  ██████╗██╗  ██╗
╚══██╔══╝██║████╗ ████║██╔════╝██╔════╝██║     ██╔═══██╗██╔════╝██║ ██╔╝
   ██║   ██║██╔████╔██║█████╗  ██║     ██║     ██║   ██║██║     █████╔╝
   ██║   ██║██║╚██╔╝██║██╔══╝  ██║     ██║     ██║   ██║██║     ██╔═██╗
   ██║   ██║██║ ╚═╝ ██║███████╗╚██████╗███████╗╚██████╔╝╚██████╗██║  ██╗
   ╚═╝   ╚═╝╚═╝     ╚═╝╚══════╝ ╚═════╝╚══════╝ ╚═════╝  ╚═════╝╚═╝  ╚═╝

timeclock - employee attendance

CLOCKING:

  in <assignment>         Clock in and open the live clock
    --lat, --lon          Location at clock-in
    --address             Address or place name
    --photo               Photo URL
    --no-ui               Skip the live clock

  switch <assignment>     Close the current segment and start a new one
  out                     Clock out
    --status              Report a status for the last assignment (e.g. done)
  track --lat --lon       Record a location sample
  status                  Show the open session
    --no-ui               Print a summary instead of the live clock

    Live clock keys:
      s             Switch assignment
      o             Clock out
      q/esc         Leave the clock running and exit

CORRECTIONS:

  edit <session>          Request a correction
    --in, --out           Corrected times (dd/mm/yyyy HH:MM, HH:MM, RFC 3339)
    -n, --notes           Reason
  approve <session>       Approve a session (privileged)
  reject <session> -n ..  Reject a session with a reason (privileged)

REPORTS:

  ls                      List sessions
    --from, --to          Day range (today, yesterday, dd/mm/yyyy, 3 days ago)
    --actor               Another actor's sessions (privileged)
    -s, --status          active|completed|pending_approval|approved|rejected
    -f, --format          table|json|yaml
  show <session>          Session details with segments
  points <session>        Tracking points of a session
  timesheet               Minutes per assignment and weekday
    --week                Any day of the week to show

SERVER:

  serve                   Run the HTTP API
    --addr                Listen address
  token <actor>           Issue an API bearer token
    --ttl                 Token lifetime
    --privileged          Request approver rights

GLOBAL FLAGS:

  --config                Config file (default ~/.timeclock/config.toml)
  --as                    Act as this actor id

`)
}
