package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	location  string
	content   string
	action    string
	limit     int
	extension string
)

func main() {
	root := &cobra.Command{
		Use:           "nexus-cli",
		Short:         "CLI client for the nexus file manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&serverURL, "server", envOr("NEXUS_SERVER", "http://localhost:8080"), "Server URL")
	root.PersistentFlags().StringVarP(&location, "location", "L", "", "Directory the file lives in (server root if empty)")

	root.AddCommand(&cobra.Command{
		Use:   "files",
		Short: "List regular files in a location",
		Args:  cobra.NoArgs,
		RunE:  runFiles,
	})

	root.AddCommand(&cobra.Command{
		Use:   "view [file]",
		Short: "Print a file's content",
		Args:  cobra.ExactArgs(1),
		RunE:  runView,
	})

	// Create and edit read content from --content or stdin
	createCmd := &cobra.Command{
		Use:   "create [file]",
		Short: "Create a file (overwrites an existing one)",
		Args:  cobra.ExactArgs(1),
		RunE:  runWrite("/api/create"),
	}
	createCmd.Flags().StringVarP(&content, "content", "c", "", "File content (stdin if omitted)")
	root.AddCommand(createCmd)

	editCmd := &cobra.Command{
		Use:   "edit [file]",
		Short: "Replace a file's content",
		Args:  cobra.ExactArgs(1),
		RunE:  runWrite("/api/edit"),
	}
	editCmd.Flags().StringVarP(&content, "content", "c", "", "File content (stdin if omitted)")
	root.AddCommand(editCmd)

	root.AddCommand(&cobra.Command{
		Use:   "delete [file]",
		Short: "Delete a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	})

	root.AddCommand(&cobra.Command{
		Use:   "exists [file]",
		Short: "Report whether a file exists",
		Args:  cobra.ExactArgs(1),
		RunE:  runExists,
	})

	root.AddCommand(&cobra.Command{
		Use:   "browse [path]",
		Short: "List subdirectories of a path",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBrowse,
	})

	execCmd := &cobra.Command{
		Use:   "exec [file]",
		Short: "Compile and/or run a file on the server",
		Args:  cobra.ExactArgs(1),
		RunE:  runExec,
	}
	execCmd.Flags().StringVarP(&action, "action", "a", "both", "compile, run or both")
	root.AddCommand(execCmd)

	root.AddCommand(&cobra.Command{
		Use:   "languages",
		Short: "List supported languages",
		Args:  cobra.NoArgs,
		RunE:  runLanguages,
	})

	historyCmd := &cobra.Command{
		Use:   "history [id]",
		Short: "List recent executions, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&limit, "limit", 20, "Maximum executions to list")
	historyCmd.Flags().StringVar(&extension, "ext", "", "Only list executions of this extension")
	root.AddCommand(historyCmd)

	root.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE:  runHealth,
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fileQuery(name string) url.Values {
	q := url.Values{}
	q.Set("file", name)
	q.Set("location", location)
	return q
}

func runFiles(cmd *cobra.Command, _ []string) error {
	var resp struct {
		Files []string `json:"files"`
	}
	q := url.Values{}
	q.Set("location", location)
	if err := newClient(serverURL).get("/api/files", q, &resp); err != nil {
		return err
	}
	for _, f := range resp.Files {
		fmt.Fprintln(cmd.OutOrStdout(), f)
	}
	return nil
}

func runView(cmd *cobra.Command, args []string) error {
	var resp struct {
		Content string `json:"content"`
	}
	if err := newClient(serverURL).get("/api/view", fileQuery(args[0]), &resp); err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), resp.Content)
	return nil
}

func runWrite(path string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		body := content
		if !cmd.Flags().Changed("content") {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			body = string(data)
		}

		payload := map[string]string{
			"filename": args[0],
			"content":  body,
			"location": location,
		}
		return printMessage(cmd, path, payload)
	}
}

func runDelete(cmd *cobra.Command, args []string) error {
	payload := map[string]string{
		"filename": args[0],
		"location": location,
	}
	return printMessage(cmd, "/api/delete", payload)
}

func printMessage(cmd *cobra.Command, path string, payload any) error {
	var resp struct {
		Message string `json:"message"`
	}
	if err := newClient(serverURL).post(path, payload, &resp); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
	return nil
}

func runExists(cmd *cobra.Command, args []string) error {
	var resp struct {
		Exists bool `json:"exists"`
	}
	if err := newClient(serverURL).get("/api/exists", fileQuery(args[0]), &resp); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.Exists)
	if !resp.Exists {
		os.Exit(1)
	}
	return nil
}

func runBrowse(cmd *cobra.Command, args []string) error {
	var resp struct {
		Directories []string `json:"directories"`
		CurrentPath string   `json:"currentPath"`
	}
	q := url.Values{}
	if len(args) > 0 {
		q.Set("path", args[0])
	}
	if err := newClient(serverURL).get("/api/browse", q, &resp); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, resp.CurrentPath)
	for _, d := range resp.Directories {
		fmt.Fprintf(out, "  %s/\n", d)
	}
	return nil
}

func runExec(cmd *cobra.Command, args []string) error {
	payload := map[string]string{
		"filename": args[0],
		"action":   action,
		"location": location,
	}
	var resp struct {
		Success  bool   `json:"success"`
		Output   string `json:"output"`
		ExitCode int    `json:"exitCode"`
		Error    string `json:"error"`
	}
	if err := newClient(serverURL).post("/api/execute", payload, &resp); err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), resp.Output)
	if !resp.Success {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s (exit code %d)\n", resp.Error, resp.ExitCode)
	}

	// Exit with the program's exit code
	if resp.ExitCode != 0 {
		code := resp.ExitCode
		if code < 0 || code > 255 {
			code = 1
		}
		os.Exit(code)
	}
	return nil
}

func runLanguages(cmd *cobra.Command, _ []string) error {
	var resp struct {
		Languages []struct {
			Name       string   `json:"name"`
			Extensions []string `json:"extensions"`
			Compiled   bool     `json:"compiled"`
		} `json:"languages"`
	}
	if err := newClient(serverURL).get("/api/languages", nil, &resp); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, l := range resp.Languages {
		kind := "interpreted"
		if l.Compiled {
			kind = "compiled"
		}
		fmt.Fprintf(out, "%-12s %-12s %s\n", l.Name, kind, strings.Join(l.Extensions, ", "))
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	c := newClient(serverURL)
	if len(args) == 1 {
		var result any
		if err := c.get("/api/executions/"+url.PathEscape(args[0]), nil, &result); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if extension != "" {
		q.Set("extension", extension)
	}
	var result any
	if err := c.get("/api/executions", q, &result); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	var result any
	if err := newClient(serverURL).get("/health", nil, &result); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), result)
}
