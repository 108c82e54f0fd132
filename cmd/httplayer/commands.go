package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/GriffinCanCode/httplayer/internal/providers/http/client"
	"github.com/GriffinCanCode/httplayer/internal/providers/http/files"
	"github.com/GriffinCanCode/httplayer/internal/providers/http/utils"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newGetCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get URL",
		Short: "Fetch URL and print the body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			resp, err := a.run(ctx, func(req client.Request) (*client.Handle, error) {
				return a.client.Send(ctx, req)
			}, client.Request{Method: http.MethodGet, URL: args[0]})
			if resp != nil {
				a.out.Write(resp.Body)
			}
			return err
		},
	}
}

func newSendCommand(opts *cliOptions) *cobra.Command {
	var (
		data     string
		dataFile string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "send METHOD URL",
		Short: "Send a request with an optional body and print the response",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if data != "" && dataFile != "" {
				return fmt.Errorf("--data and --data-file are mutually exclusive")
			}
			body := []byte(data)
			if dataFile != "" {
				b, err := os.ReadFile(dataFile)
				if err != nil {
					return err
				}
				body = b
			}
			if asJSON {
				opts.headers = append(opts.headers, "Content-Type: application/json", "Accept: application/json")
			}

			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			resp, err := a.run(ctx, func(req client.Request) (*client.Handle, error) {
				return a.client.Send(ctx, req)
			}, client.Request{Method: strings.ToUpper(args[0]), URL: args[1], Body: body})
			if resp != nil {
				a.out.Write(resp.Body)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "request body")
	cmd.Flags().StringVar(&dataFile, "data-file", "", "read the request body from a file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "send and accept application/json")
	return cmd
}

func newUploadCommand(opts *cliOptions) *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "upload URL FILE",
		Short: "Stream FILE as the request body",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			resp, err := a.run(ctx, func(req client.Request) (*client.Handle, error) {
				return a.client.SendUpload(ctx, req, args[1])
			}, client.Request{
				Method:     strings.ToUpper(method),
				URL:        args[0],
				OnProgress: a.progressPrinter("uploaded"),
			})
			fmt.Fprintln(a.errOut)
			if resp != nil {
				a.out.Write(resp.Body)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&method, "method", "X", http.MethodPost, "request method")
	return cmd
}

func newDownloadCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "download URL DEST",
		Short: "Save the response body of URL to DEST, a file or an existing directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := args[1]
			if info, err := os.Stat(dest); err == nil && info.IsDir() {
				u, err := utils.ParseURL(args[0])
				if err != nil {
					return err
				}
				dest = files.DestinationFor(dest, u.Path, "download")
			}

			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			resp, err := a.run(ctx, func(req client.Request) (*client.Handle, error) {
				return a.client.SendDownload(ctx, req, dest)
			}, client.Request{
				Method:     http.MethodGet,
				URL:        args[0],
				OnProgress: a.progressPrinter("downloaded"),
			})
			fmt.Fprintln(a.errOut)
			if err != nil {
				return err
			}

			info, err := os.Stat(resp.FileLocation)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "saved %s (%s)\n", resp.FileLocation, humanize.Bytes(uint64(info.Size())))
			return nil
		},
	}
}
