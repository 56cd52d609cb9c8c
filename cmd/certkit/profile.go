package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/AutelysZ/certkit/internal/profile"
	"github.com/AutelysZ/certkit/profiles"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Profile commands",
	Long:  `Commands for listing and showing certificate profiles.`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List embedded profiles",
	RunE:  runProfileList,
}

var profileShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show one profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileShow,
}

func init() {
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfileList(cmd *cobra.Command, args []string) error {
	entries, err := profiles.FS.ReadDir(".")
	if err != nil {
		return err
	}

	var names []string
	byName := map[string]*profile.Profile{}
	for _, entry := range entries {
		data, err := profiles.FS.ReadFile(entry.Name())
		if err != nil {
			return err
		}
		p, err := profile.Load(data)
		if err != nil {
			return fmt.Errorf("profile %s: %w", entry.Name(), err)
		}
		names = append(names, p.Name)
		byName[p.Name] = p
	}
	sort.Strings(names)

	fmt.Println("Embedded profiles:")
	for _, name := range names {
		fmt.Printf("  %-12s %s\n", name, byName[name].Description)
	}
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	p, err := loadProfile(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Profile: %s\n", p.Name)
	if p.Description != "" {
		fmt.Printf("  Description: %s\n", p.Description)
	}
	fmt.Printf("  Key:         %s", p.Key.Algorithm)
	if p.Key.Bits > 0 {
		fmt.Printf(" %d", p.Key.Bits)
	}
	if p.Key.Curve != "" {
		fmt.Printf(" %s", p.Key.Curve)
	}
	fmt.Println()
	fmt.Printf("  Validity:    %s\n", p.Validity)
	if p.IsCA {
		fmt.Println("  CA:          yes")
	}
	if len(p.KeyUsage) > 0 {
		fmt.Printf("  Key Usage:   %v\n", p.KeyUsage)
	}
	if len(p.ExtKeyUsage) > 0 {
		fmt.Printf("  Ext Usage:   %v\n", p.ExtKeyUsage)
	}
	if len(p.SAN) > 0 {
		fmt.Printf("  SAN:         %v\n", p.SAN)
	}
	return nil
}
