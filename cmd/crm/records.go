package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/localcrm/pkg/schema"
	"github.com/celerix-dev/localcrm/pkg/sdk"
)

var listCmd = &cobra.Command{
	Use:   "list <collection>",
	Short: "List every record of a collection",
	Long: `List prints every record of a collection as a JSON array.

Valid collections: leads, users, activities

Example:
  crm list leads`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCRM(func(c sdk.CRM) error {
			records, err := c.List(args[0])
			if err != nil {
				return fmt.Errorf("list %s: %w", args[0], err)
			}
			return printJSON(records)
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <collection> <id>",
	Short: "Get a record by ID",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCRM(func(c sdk.CRM) error {
			rec, err := c.Get(args[0], args[1])
			if errors.Is(err, sdk.ErrNotFound) {
				return fmt.Errorf("record %q not found in %s", args[1], args[0])
			}
			if err != nil {
				return fmt.Errorf("get record: %w", err)
			}
			return printJSON(rec)
		})
	},
}

var addCmd = &cobra.Command{
	Use:   "add <collection> <json>",
	Short: "Create a record (leads and activities upsert by id)",
	Long: `Add stores a JSON object in a collection and prints the stored record.

Example:
  crm add leads '{"name":"Acme","status":"new"}'
  crm add users '{"name":"Bo","email":"bo@x.io","password":"secret","role":"sales"}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := parseRecord(args[1])
		if err != nil {
			return err
		}
		return withCRM(func(c sdk.CRM) error {
			stored, err := c.Save(args[0], rec)
			if err != nil {
				return fmt.Errorf("save record: %w", err)
			}
			return printJSON(stored)
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <collection> <id> <json>",
	Short: "Merge fields into an existing record",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := parseRecord(args[2])
		if err != nil {
			return err
		}
		return withCRM(func(c sdk.CRM) error {
			updated, err := c.Update(args[0], args[1], patch)
			if errors.Is(err, sdk.ErrNotFound) {
				return fmt.Errorf("record %q not found in %s", args[1], args[0])
			}
			if err != nil {
				return fmt.Errorf("update record: %w", err)
			}
			return printJSON(updated)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <collection> <id>",
	Short: "Delete a record; deleting a missing id succeeds",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCRM(func(c sdk.CRM) error {
			if err := c.Delete(args[0], args[1]); err != nil {
				return fmt.Errorf("delete record: %w", err)
			}
			_, err := fmt.Fprintln(out, "OK")
			return err
		})
	},
}

var activitiesCmd = &cobra.Command{
	Use:   "activities [leadId]",
	Short: "List activities newest first, optionally for one lead",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		leadID := ""
		if len(args) == 1 {
			leadID = args[0]
		}
		return withCRM(func(c sdk.CRM) error {
			records, err := c.Activities(leadID)
			if err != nil {
				return fmt.Errorf("list activities: %w", err)
			}
			return printJSON(records)
		})
	},
}

func parseRecord(s string) (schema.Record, error) {
	var rec schema.Record
	if err := json.Unmarshal([]byte(s), &rec); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	if rec == nil {
		rec = schema.Record{}
	}
	return rec, nil
}
