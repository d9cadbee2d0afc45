package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"picstore/internal/api"
	"picstore/internal/config"
)

func newImageCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Upload, fetch and delete images through the API",
	}
	cmd.AddCommand(newImageUploadCmd(cfg))
	cmd.AddCommand(newImageGetCmd(cfg))
	cmd.AddCommand(newImageDeleteCmd(cfg))
	return cmd
}

func newImageUploadCmd(cfg *config.Config) *cobra.Command {
	var (
		ownerID   int64
		creatorID int64
		profile   bool
		label     string
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload one image; --profile makes it the owner's profile picture",
		Args:  requireExactlyArgs(1, "file is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			return withSession(cmd.Context(), cfg, func(client *api.Client, userID int64) error {
				meta := api.ImageUploadRequest{
					OwnerID:   defaultID(ownerID, userID),
					CreatorID: defaultID(creatorID, userID),
					Label:     label,
					Filename:  filepath.Base(args[0]),
				}
				if profile {
					meta.Context = "profile"
				}

				created, location, err := client.UploadImage(cmd.Context(), meta, bytes.NewReader(content))
				if err != nil {
					return err
				}
				if created == nil {
					if structuredOutput() {
						return writeStructured(map[string]any{"owner_id": meta.OwnerID, "redirect": location})
					}
					return writePlain("profile picture updated for user %d (%s)\n", meta.OwnerID, location)
				}
				if structuredOutput() {
					return writeStructured(created)
				}
				return writePlain("stored image %d (%s, %dx%d, %d bytes) for user %d\n",
					created.ID, created.MediaType, created.Width, created.Height, created.SizeBytes, created.OwnerID)
			})
		},
	}

	cmd.Flags().Int64Var(&ownerID, "owner", 0, "owner user id (default: signed-in user)")
	cmd.Flags().Int64Var(&creatorID, "creator", 0, "creator user id (default: signed-in user)")
	cmd.Flags().BoolVar(&profile, "profile", false, "replace the owner's profile picture")
	cmd.Flags().StringVar(&label, "label", "", "optional image label")
	return cmd
}

func newImageGetCmd(cfg *config.Config) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "get <id|default>",
		Short: "Download one image; unknown ids yield the placeholder",
		Args:  requireExactlyArgs(1, "image id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), cfg, func(client *api.Client, _ int64) error {
				var buf bytes.Buffer
				mediaType, err := client.FetchImage(cmd.Context(), args[0], &buf)
				if err != nil {
					return err
				}
				if outPath == "" || outPath == "-" {
					_, err := io.Copy(stdout, &buf)
					return err
				}
				size := buf.Len()
				if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
					return err
				}
				if structuredOutput() {
					return writeStructured(map[string]any{"path": outPath, "media_type": mediaType, "size_bytes": size})
				}
				return writePlain("wrote %d bytes (%s) to %s\n", size, mediaType, outPath)
			})
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "write the image to this file instead of stdout")
	return cmd
}

func newImageDeleteCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete one image owned by the signed-in user",
		Args:    requireImageID,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseImageIDArg(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), cfg, func(client *api.Client, _ int64) error {
				if err := client.DeleteImage(cmd.Context(), id); err != nil {
					return err
				}
				if structuredOutput() {
					return writeStructured(map[string]any{"id": id, "deleted": true})
				}
				return writePlain("deleted image %d\n", id)
			})
		},
	}
}

func defaultID(explicit, fallback int64) int64 {
	if explicit > 0 {
		return explicit
	}
	return fallback
}
