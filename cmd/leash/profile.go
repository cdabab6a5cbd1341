// ABOUTME: Dog profile commands
// ABOUTME: Create, show, and edit the dog's profile

package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/harper/leash/internal/storage"
	"github.com/harper/leash/internal/ui"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the dog profile",
}

var profileCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a dog profile",
	Long: `Create a dog profile. The most recently created profile becomes the
active one used by walks, triggers, and reports.

Examples:
  leash profile create --name Rex --breed "border collie" --age 3 --weight 20
  leash profile create --name Luna --breed mixed --age 5 --weight 18 \
    --triggers dogs --triggers bikes --reactivity 4 --method bat`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerID, err := owner()
		if err != nil {
			return err
		}

		name, _ := cmd.Flags().GetString("name")
		breed, _ := cmd.Flags().GetString("breed")
		age, _ := cmd.Flags().GetInt("age")
		weight, _ := cmd.Flags().GetFloat64("weight")
		triggerTags, _ := cmd.Flags().GetStringArray("triggers")
		reactivity, _ := cmd.Flags().GetInt("reactivity")

		in := storage.ProfileInput{
			Name:            name,
			Breed:           breed,
			Age:             age,
			Weight:          weight,
			Triggers:        triggerTags,
			ReactivityLevel: reactivity,
		}
		if method, _ := cmd.Flags().GetString("method"); method != "" {
			in.TrainingMethod = &method
		}

		p, err := profiles.Create(ownerID, in)
		if err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}

		color.Green("✓ Created profile for %s", p.Name)
		fmt.Println(ui.FormatProfile(p))
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active dog profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerID, err := owner()
		if err != nil {
			return err
		}

		p, err := profiles.ActiveProfile(ownerID)
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Println("No profile yet. Create one with: leash profile create --name <name>")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get profile: %w", err)
		}

		fmt.Println(ui.FormatProfile(p))
		fmt.Println(color.New(color.Faint).Sprint(p.ID))
		return nil
	},
}

var profileEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the active dog profile",
	Long: `Edit the active dog profile. Only the flags you pass change; everything
else is left as it is.

Examples:
  leash profile edit --reactivity 3
  leash profile edit --triggers dogs --triggers skateboards --method "look at that"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerID, err := owner()
		if err != nil {
			return err
		}

		p, err := profiles.ActiveProfile(ownerID)
		if err != nil {
			return fmt.Errorf("failed to get profile: %w", err)
		}

		var patch storage.ProfilePatch
		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			patch.Name = &name
		}
		if cmd.Flags().Changed("breed") {
			breed, _ := cmd.Flags().GetString("breed")
			patch.Breed = &breed
		}
		if cmd.Flags().Changed("age") {
			age, _ := cmd.Flags().GetInt("age")
			patch.Age = &age
		}
		if cmd.Flags().Changed("weight") {
			weight, _ := cmd.Flags().GetFloat64("weight")
			patch.Weight = &weight
		}
		if cmd.Flags().Changed("triggers") {
			patch.Triggers, _ = cmd.Flags().GetStringArray("triggers")
		}
		if cmd.Flags().Changed("reactivity") {
			reactivity, _ := cmd.Flags().GetInt("reactivity")
			patch.ReactivityLevel = &reactivity
		}
		if cmd.Flags().Changed("method") {
			method, _ := cmd.Flags().GetString("method")
			patch.TrainingMethod = &method
		}

		updated, err := profiles.Update(p.ID, patch)
		if err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}

		color.Green("✓ Updated profile for %s", updated.Name)
		fmt.Println(ui.FormatProfile(updated))
		return nil
	},
}

func init() {
	profileCreateCmd.Flags().String("name", "", "dog's name (required)")
	profileCreateCmd.Flags().String("breed", "", "breed")
	profileCreateCmd.Flags().Int("age", 0, "age in years")
	profileCreateCmd.Flags().Float64("weight", 0, "weight in kg")
	profileCreateCmd.Flags().StringArray("triggers", nil, "known trigger tag (repeatable)")
	profileCreateCmd.Flags().Int("reactivity", 3, "reactivity level 1-5")
	profileCreateCmd.Flags().String("method", "", "training method (e.g. bat, cc/ds)")
	_ = profileCreateCmd.MarkFlagRequired("name")

	profileEditCmd.Flags().String("name", "", "dog's name")
	profileEditCmd.Flags().String("breed", "", "breed")
	profileEditCmd.Flags().Int("age", 0, "age in years")
	profileEditCmd.Flags().Float64("weight", 0, "weight in kg")
	profileEditCmd.Flags().StringArray("triggers", nil, "replace the trigger tag set (repeatable)")
	profileEditCmd.Flags().Int("reactivity", 0, "reactivity level 1-5")
	profileEditCmd.Flags().String("method", "", "training method")

	profileCmd.AddCommand(profileCreateCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileEditCmd)
	rootCmd.AddCommand(profileCmd)
}
