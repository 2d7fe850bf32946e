package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tussienorway/tussievideo/internal/keys"
)

func newKeysCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored API keys",
	}

	cmd.AddCommand(
		newKeysSetCmd(app),
		newKeysShowCmd(app),
		newKeysDeleteCmd(app),
		newKeysListCmd(app),
	)
	return cmd
}

func newKeysSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set [provider]",
		Short: "Store an API key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			providerArg := providerName
			if len(args) == 1 {
				providerArg = args[0]
			}

			key, err := readSecret(app, fmt.Sprintf("Enter API key for %s: ", providerArg))
			if err != nil {
				return err
			}
			if key == "" {
				return fmt.Errorf("no key entered")
			}

			store, err := keys.NewStore()
			if err != nil {
				return err
			}
			if err := store.Set(providerArg, key); err != nil {
				return err
			}

			fmt.Fprintf(app.Out, "Stored key for %s (%s)\n", providerArg, keys.MaskKey(key))
			return nil
		},
	}
}

// readSecret reads without echo when stdin is a terminal, otherwise reads
// a line so keys can be piped in.
func readSecret(app *App, prompt string) (string, error) {
	fmt.Fprint(app.Out, prompt)

	if f, ok := app.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(app.Out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}

	scanner := bufio.NewScanner(app.In)
	if !scanner.Scan() {
		return "", scanner.Err()
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func newKeysShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show [provider]",
		Short: "Show a stored key, masked",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			providerArg := providerName
			if len(args) == 1 {
				providerArg = args[0]
			}

			store, err := keys.NewStore()
			if err != nil {
				return err
			}
			key, err := store.Get(providerArg)
			if err != nil {
				return err
			}
			if key == "" {
				return fmt.Errorf("no key stored for %s", providerArg)
			}

			fmt.Fprintf(app.Out, "%s: %s\n", providerArg, keys.MaskKey(key))
			return nil
		},
	}
}

func newKeysDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [provider]",
		Short: "Delete a stored key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			providerArg := providerName
			if len(args) == 1 {
				providerArg = args[0]
			}

			store, err := keys.NewStore()
			if err != nil {
				return err
			}
			if err := store.Delete(providerArg); err != nil {
				return err
			}

			fmt.Fprintf(app.Out, "Deleted key for %s\n", providerArg)
			return nil
		},
	}
}

func newKeysListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List providers with stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := keys.NewStore()
			if err != nil {
				return err
			}
			providers, err := store.List()
			if err != nil {
				return err
			}
			if len(providers) == 0 {
				fmt.Fprintln(app.Out, "No keys stored.")
				return nil
			}
			for _, p := range providers {
				fmt.Fprintln(app.Out, p)
			}
			return nil
		},
	}
}
