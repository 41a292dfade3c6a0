package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/beevik/etree"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sitemaptools/sitemapctl/internal/saveflow"
)

var settingsOut string

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Fetch and save the service's settings document",
}

var settingsPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Fetch the settings XML from the backend",
	Long: `Fetches the current settings document. The root element carries a
last_modified timestamp which "settings push" uses for conflict detection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := buildClient(cfg)
		if err != nil {
			return err
		}

		res, err := client.GetConfiguration(context.Background())
		if err != nil {
			return err
		}
		if res.Doc == nil {
			if res.StatusCode == http.StatusUnauthorized {
				return errLoginRequired
			}
			return fmt.Errorf("backend returned no settings document (status %d)", res.StatusCode)
		}

		res.Doc.Indent(2)
		if settingsOut == "" {
			out, err := res.Doc.WriteToString()
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		}
		if err := res.Doc.WriteToFile(settingsOut); err != nil {
			return fmt.Errorf("writing %s: %w", settingsOut, err)
		}
		fmt.Printf("Settings written to %s\n", settingsOut)
		return nil
	},
}

var settingsPushCmd = &cobra.Command{
	Use:   "push <file>",
	Short: "Save an edited settings XML back to the backend",
	Long: `Submits the document with the timestamp it was pulled at. If the
server's copy changed in the meantime you are asked whether to
overwrite it anyway or reload the server's copy instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := buildClient(cfg)
		if err != nil {
			return err
		}

		path := args[0]
		doc := etree.NewDocument()
		if err := doc.ReadFromFile(path); err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		root := doc.Root()
		if root == nil {
			return fmt.Errorf("%s: no root element", path)
		}
		ts := root.SelectAttrValue("last_modified", "")
		if ts == "" {
			return fmt.Errorf("%s: missing last_modified timestamp; pull first", path)
		}

		serialized, err := doc.WriteToString()
		if err != nil {
			return err
		}

		flow := saveflow.New(client, consolePrompter{}, ts)
		flow.MarkDirty()

		result, err := flow.Save(context.Background(), serialized)
		if err != nil {
			return err
		}
		switch result {
		case saveflow.Saved:
			root.CreateAttr("last_modified", flow.Timestamp())
			if err := doc.WriteToFile(path); err != nil {
				return fmt.Errorf("updating %s: %w", path, err)
			}
			fmt.Printf("Saved; server timestamp is now %s\n", flow.Timestamp())
		case saveflow.Reloaded:
			flow.ReloadedConfig.Indent(2)
			if err := flow.ReloadedConfig.WriteToFile(path); err != nil {
				return fmt.Errorf("writing reloaded settings to %s: %w", path, err)
			}
			fmt.Printf("Local edits discarded; %s now matches the server\n", path)
		case saveflow.KeptLocal:
			fmt.Println("Nothing saved; local edits kept")
		case saveflow.Unauthorized:
			return errLoginRequired
		default:
			return fmt.Errorf("the backend rejected the save")
		}
		return nil
	},
}

// consolePrompter asks the conflict questions on the terminal.
type consolePrompter struct{}

func (consolePrompter) ConfirmOverwrite() bool {
	return confirm("The server's settings are newer than your copy. Overwrite them anyway")
}

func (consolePrompter) ConfirmReload() bool {
	return confirm("Discard your local edits and reload the server's settings")
}

func confirm(label string) bool {
	p := promptui.Prompt{Label: label, IsConfirm: true}
	_, err := p.Run()
	return err == nil
}

func init() {
	settingsPullCmd.Flags().StringVarP(&settingsOut, "out", "o", "", "write the document to a file instead of stdout")
	settingsCmd.AddCommand(settingsPullCmd)
	settingsCmd.AddCommand(settingsPushCmd)
	rootCmd.AddCommand(settingsCmd)
}
