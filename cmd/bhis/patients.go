package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func patientsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "Browse the patient registry",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, _ := cmd.Flags().GetString("search")
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")

			ctx := cmd.Context()
			c, err := a.authed(ctx)
			if err != nil {
				return err
			}
			page, err := c.ListPatients(ctx, q, limit, offset)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tBIRTH DATE\tGENDER\tCONTACT")
			for _, p := range page.Patients {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.FullName, p.DateOfBirth, p.Gender, p.ContactNumber)
			}
			w.Flush()
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d\n", len(page.Patients), page.Total)
			return nil
		},
	}
	list.Flags().StringP("search", "q", "", "Filter by name")
	list.Flags().Int("limit", 20, "Page size")
	list.Flags().Int("offset", 0, "Rows to skip")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one patient with visit history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid patient id: %w", err)
			}
			ctx := cmd.Context()
			c, err := a.authed(ctx)
			if err != nil {
				return err
			}
			p, err := c.GetPatient(ctx, id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", p.FullName)
			fmt.Fprintf(out, "  born %s, %s, %s\n", p.DateOfBirth, p.Gender, p.CivilStatus)
			fmt.Fprintf(out, "  %s  %s\n", p.Address, p.ContactNumber)
			if p.EmergencyContactName != "" {
				fmt.Fprintf(out, "  emergency: %s (%s) %s\n", p.EmergencyContactName, p.EmergencyContactRelationship, p.EmergencyContactNumber)
			}
			fmt.Fprintf(out, "Visits (%d)\n", len(p.Visits))
			for _, v := range p.Visits {
				fmt.Fprintf(out, "  %s  %s\n", v.CreatedAt.Format("2006-01-02 15:04"), v.Purpose)
			}
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a patient record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid patient id: %w", err)
			}
			ctx := cmd.Context()
			c, err := a.authed(ctx)
			if err != nil {
				return err
			}
			if err := c.DeletePatient(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Patient deleted")
			return nil
		},
	}

	cmd.AddCommand(list, get, del)
	return cmd
}
