// Package cli file commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/drivelink/drivelink/internal/filesync"
	"github.com/drivelink/drivelink/internal/models"
	"github.com/drivelink/drivelink/internal/util/tags"
	"github.com/drivelink/drivelink/internal/validation"
)

// newFilesCmd creates the 'files' command group.
func newFilesCmd() *cobra.Command {
	filesCmd := &cobra.Command{
		Use:   "files",
		Short: "File operations (list, upload, download, delete, tags)",
		Long:  `Commands for managing files stored on the Drivelink server.`,
	}

	filesCmd.AddCommand(newFilesListCmd())
	filesCmd.AddCommand(newFilesUploadCmd())
	filesCmd.AddCommand(newFilesDownloadCmd())
	filesCmd.AddCommand(newFilesDeleteCmd())
	filesCmd.AddCommand(newFilesTagsCmd())
	filesCmd.AddCommand(newFilesRenameCmd())
	filesCmd.AddCommand(newFilesShareCmd())
	filesCmd.AddCommand(newFilesReorderCmd())

	return filesCmd
}

// newFilesListCmd creates the 'files list' command.
func newFilesListCmd() *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored files",
		Long: `List files stored on the Drivelink server.

Examples:
  # List everything
  drivelink files list

  # Filter by name or tag
  drivelink files list --query report`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireAuth(); err != nil {
				return err
			}

			records, err := a.syncer.List(GetContext(), query)
			if err != nil {
				return fmt.Errorf("list failed: %w", err)
			}

			printFileTable(records)
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Filter by file name or tag")
	return cmd
}

// newFilesUploadCmd creates the 'files upload' command.
func newFilesUploadCmd() *cobra.Command {
	var tagList string

	cmd := &cobra.Command{
		Use:   "upload <file> [file...]",
		Short: "Upload files to Drivelink",
		Long: `Upload one or more files. Files upload concurrently; each file
succeeds or fails on its own.

Examples:
  # Upload a single file
  drivelink files upload report.pdf

  # Upload several files with tags
  drivelink files upload a.jpg b.jpg --tags photos,2026

  # Limit concurrency
  drivelink files upload *.zip --max-concurrent 2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireAuth(); err != nil {
				return err
			}

			fileTags := tags.ParseCommaSeparated(tagList)

			var requests []filesync.UploadRequest
			var open []*os.File
			defer func() {
				for _, f := range open {
					f.Close()
				}
			}()
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("cannot open %s: %w", path, err)
				}
				open = append(open, f)

				info, err := f.Stat()
				if err != nil {
					return fmt.Errorf("cannot stat %s: %w", path, err)
				}
				requests = append(requests, filesync.UploadRequest{
					Name:    filepath.Base(path),
					Size:    info.Size(),
					Tags:    fileTags,
					Content: f,
				})
			}

			results := a.syncer.UploadBatch(GetContext(), requests)

			failed := 0
			for _, res := range results {
				if res.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", failed, len(results))
			}
			fmt.Printf("Uploaded %d file(s)\n", len(results))
			return nil
		},
	}

	cmd.Flags().StringVar(&tagList, "tags", "", "Comma-separated tags applied to every file")
	return cmd
}

// newFilesDownloadCmd creates the 'files download' command.
func newFilesDownloadCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <file-id>",
		Short: "Download a file",
		Long: `Download a file's content to disk.

Examples:
  # Download to the file's stored name in the current directory
  drivelink files download 6f1a2b

  # Download to an explicit path
  drivelink files download 6f1a2b --output /tmp/report.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireAuth(); err != nil {
				return err
			}
			fileID := args[0]

			name := output
			if name == "" {
				if rec := findRecord(a, fileID); rec != nil {
					// The stored name comes from the server; refuse names
					// that would escape the working directory.
					if err := validation.ValidateFilename(rec.Name); err != nil {
						return fmt.Errorf("unsafe stored filename: %w", err)
					}
					name = rec.Name
				} else {
					name = fileID
				}
			}

			dst, err := os.Create(name)
			if err != nil {
				return fmt.Errorf("cannot create %s: %w", name, err)
			}
			defer dst.Close()

			if err := a.syncer.Download(GetContext(), fileID, filepath.Base(name), dst); err != nil {
				os.Remove(name)
				return fmt.Errorf("download failed: %w", err)
			}

			fmt.Printf("Saved %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination path (defaults to the stored name)")
	return cmd
}

// newFilesDeleteCmd creates the 'files delete' command.
func newFilesDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <file-id>",
		Short: "Delete a file",
		Long: `Delete a file from the Drivelink server. Prompts for confirmation
unless --yes is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireAuth(); err != nil {
				return err
			}
			fileID := args[0]

			name := fileID
			if rec := findRecord(a, fileID); rec != nil {
				name = rec.Name
			}

			if !yes {
				confirmed, err := confirmDelete(name)
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Println("Aborted")
					return nil
				}
			}

			if err := a.syncer.Delete(GetContext(), fileID); err != nil {
				return fmt.Errorf("delete failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// newFilesTagsCmd creates the 'files tags' command.
func newFilesTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags <file-id> <tags>",
		Short: "Replace a file's tags",
		Long: `Replace a file's tags with a comma-separated list. An empty
string clears all tags.

Examples:
  drivelink files tags 6f1a2b photos,2026
  drivelink files tags 6f1a2b ""`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireAuth(); err != nil {
				return err
			}

			newTags := tags.ParseCommaSeparated(args[1])
			if err := a.syncer.UpdateTags(GetContext(), args[0], newTags); err != nil {
				return fmt.Errorf("tag update failed: %w", err)
			}
			return nil
		},
	}
}

// newFilesRenameCmd creates the 'files rename' command.
func newFilesRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <file-id> <new-name>",
		Short: "Rename a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireAuth(); err != nil {
				return err
			}

			if err := a.syncer.Rename(GetContext(), args[0], args[1]); err != nil {
				return fmt.Errorf("rename failed: %w", err)
			}
			return nil
		},
	}
}

// newFilesShareCmd creates the 'files share' command.
func newFilesShareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share <file-id>",
		Short: "Print a file's public view link",
		Long:  `Print the public, unauthenticated view link for a file.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireAuth(); err != nil {
				return err
			}

			fmt.Println(a.syncer.ShareURL(args[0]))
			return nil
		},
	}
}

// newFilesReorderCmd creates the 'files reorder' command.
func newFilesReorderCmd() *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "reorder <from> <to>",
		Short: "Move a file within the listing",
		Long: `Move the file at position <from> to position <to> (zero-based)
and print the rearranged listing. The arrangement is presentation-only
for this invocation; the server keeps its own order.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid position %q", args[0])
			}
			dst, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid position %q", args[1])
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireAuth(); err != nil {
				return err
			}

			if _, err := a.syncer.List(GetContext(), query); err != nil {
				return fmt.Errorf("list failed: %w", err)
			}

			a.syncer.Reorder(src, dst)
			printFileTable(a.syncer.Files())
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Filter by file name or tag")
	return cmd
}

// findRecord looks up a file by ID in a fresh listing. Returns nil when the
// listing fails or the ID is unknown.
func findRecord(a *app, fileID string) *models.FileRecord {
	records, err := a.syncer.List(GetContext(), "")
	if err != nil {
		return nil
	}
	for i := range records {
		if records[i].ID == fileID {
			return &records[i]
		}
	}
	return nil
}

func printFileTable(records []models.FileRecord) {
	if len(records) == 0 {
		fmt.Println("No files")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSIZE\tVIEWS\tTAGS")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			rec.ID, rec.Name, formatSize(rec.Size), rec.Views, strings.Join(rec.Tags, ","))
	}
	w.Flush()
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
