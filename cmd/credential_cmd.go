package cmd

import (
	"fmt"
	"os"

	"ticket-gate/internal/services"
	"ticket-gate/utils"

	"github.com/spf13/cobra"
)

// NewCredentialCommand adds box-office tooling for printing a ticket's current
// credential without going through the API.
func NewCredentialCommand(store services.TicketStore, issuer *services.CredentialIssuer, qrSize int) *cobra.Command {
	command := &cobra.Command{
		Use:   "credential",
		Short: "Ticket credential tools",
	}

	var out string
	render := &cobra.Command{
		Use:   "render <ticketId>",
		Short: "Print the current payload of a valid ticket, or write it as a QR image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticket, err := store.GetTicket(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("loading ticket %s: %w", args[0], err)
			}

			payload, err := issuer.RenderTicket(ticket)
			if err != nil {
				return err
			}

			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), payload)
				return nil
			}

			png, err := utils.RenderQR(payload, qrSize)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, png, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	render.Flags().StringVarP(&out, "out", "o", "", "write a PNG QR code to this file")

	command.AddCommand(render)
	return command
}
