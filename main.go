package main

import (
	"context"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sheetdrop/golib"
	"sheetdrop/sheetclient"
	"sheetdrop/uploadserver"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "sheetdrop",
		Short:         "Upload Excel spreadsheets into the input directory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serve := serveCmd()
	rootCmd.RunE = serve.RunE
	rootCmd.Flags().AddFlagSet(serve.Flags())
	rootCmd.AddCommand(serve, uploadCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("sheetdrop: %v", err)
	}
}

func serveCmd() *cobra.Command {
	cfg := uploadserver.ConfigFromEnv()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload page and POST /api/upload",
		RunE: func(cmd *cobra.Command, args []string) error {
			return uploadserver.Run(cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.Listen, "listen", cfg.Listen, "listen address")
	cmd.Flags().StringVar(&cfg.InputDir, "dir", cfg.InputDir, "upload destination directory (disk backend)")
	cmd.Flags().StringVar(&cfg.Backend, "backend", cfg.Backend, "storage backend: disk or minio")
	return cmd
}

func uploadCmd() *cobra.Command {
	server := golib.GetEnv("SHEETDROP_URL", "http://localhost:3000")

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload one spreadsheet to a running sheetdrop server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cand := sheetclient.Candidate{
				Name:     filepath.Base(args[0]),
				MIMEType: mime.TypeByExtension(strings.ToLower(filepath.Ext(args[0]))),
				Data:     data,
			}

			var sel sheetclient.Selection
			if !sel.AcceptFile(cand) {
				return fmt.Errorf("%s", sel.Snapshot().Error)
			}
			golib.ConsoleLog("[XLSX] File received: name=%s type=%q size_bytes=%d", cand.Name, cand.MIMEType, cand.Size())

			res, err := sel.Submit(context.Background(), sheetclient.NewClient(server))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sel.Snapshot().Message)
			golib.ConsoleLog("[XLSX] Upload OK: projectId=%s savedPath=%s", res.ProjectID, res.SavedPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", server, "base URL of the sheetdrop server")
	return cmd
}
