package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [variant_id...]",
	Short: "Validate variants against their templates",
	Long: `Checks that every slot of a variant has exactly one placeholder in its
template and that the template has no placeholder without a slot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		specs := a.variants.List()
		if len(args) > 0 {
			specs = nil
			for _, id := range args {
				spec, err := a.variants.Get(id)
				if err != nil {
					return err
				}
				specs = append(specs, spec)
			}
		}

		failed := 0
		for _, spec := range specs {
			check, err := a.assembler.CheckVariant(spec)
			if err != nil {
				failed++
				fmt.Printf("- %s [error] %v\n", spec.ID, err)
				continue
			}
			if check.OK() {
				fmt.Printf("- %s [ok] template=%s slots=%d\n", spec.ID, spec.TemplateID, len(spec.Slots))
				continue
			}
			failed++
			var notes []string
			if len(check.Template.Duplicates) > 0 {
				notes = append(notes, "duplicates: "+strings.Join(check.Template.Duplicates, ","))
			}
			if len(check.MissingPlaceholders) > 0 {
				notes = append(notes, "slots without placeholder: "+strings.Join(check.MissingPlaceholders, ","))
			}
			if len(check.UnknownPlaceholders) > 0 {
				notes = append(notes, "placeholders without slot: "+strings.Join(check.UnknownPlaceholders, ","))
			}
			fmt.Printf("- %s [invalid] %s\n", spec.ID, strings.Join(notes, "; "))
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d variants failed validation", failed, len(specs))
		}
		fmt.Printf("%d variants ok\n", len(specs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
