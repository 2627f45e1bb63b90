package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/knowctl/internal/core/domain"
	"github.com/custodia-labs/knowctl/internal/core/services"
)

var sourceCmd = &cobra.Command{
	Use:     "source",
	Aliases: []string{"sources"},
	Short:   "Manage knowledge sources",
	Long:    `List, add, update, pin, reindex, view and remove knowledge sources.`,
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sources",
	Long: `List every source on the backend.

With --offline the last list fetched is read from the local cache
instead of the backend.`,
	Args: cobra.NoArgs,
	RunE: runSourceList,
}

var sourceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a source",
}

var sourceAddTextCmd = &cobra.Command{
	Use:   "text [content]",
	Short: "Add a text source",
	Long: `Add a free-text source. The content is taken from the arguments, or
from standard input when no argument is given or the argument is "-".`,
	RunE: runSourceAddText,
}

var sourceAddURLCmd = &cobra.Command{
	Use:   "url [uri]",
	Short: "Add a link source",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourceAddURL,
}

var sourceAddFileCmd = &cobra.Command{
	Use:   "file [path...]",
	Short: "Upload a document",
	Long: `Upload a document as a new source. When several paths are given the
first non-image file is uploaded; image files are never uploaded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSourceAddFile,
}

var sourceUpdateCmd = &cobra.Command{
	Use:   "update [source-id]",
	Short: "Update a source",
	Long: `Change a source's title, text, address or stored file.

  --content replaces the text of a text source
  --uri     points a link source at a new address
  --file    uploads a replacement document for a file source`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeSourceIDs,
	RunE:              runSourceUpdate,
}

var sourcePinCmd = &cobra.Command{
	Use:               "pin [source-id]",
	Short:             "Pin a source",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeSourceIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSourcePin(cmd, args[0], true)
	},
}

var sourceUnpinCmd = &cobra.Command{
	Use:               "unpin [source-id]",
	Short:             "Unpin a source",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeSourceIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSourcePin(cmd, args[0], false)
	},
}

var sourceReindexCmd = &cobra.Command{
	Use:               "reindex [source-id]",
	Short:             "Rebuild a source's index entries",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeSourceIDs,
	RunE:              runSourceReindex,
}

var sourceRemoveCmd = &cobra.Command{
	Use:               "remove [source-id]",
	Aliases:           []string{"rm"},
	Short:             "Remove a source",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeSourceIDs,
	RunE:              runSourceRemove,
}

var sourceViewCmd = &cobra.Command{
	Use:               "view [source-id]",
	Short:             "Show a source",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeSourceIDs,
	RunE:              runSourceView,
}

var sourceExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every source as JSON or YAML",
	Args:  cobra.NoArgs,
	RunE:  runSourceExport,
}

var sourceWatchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Upload documents dropped into a folder",
	Long: `Watch a folder and upload every document written to it. Images and
hidden files are skipped. Stops on Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runSourceWatch,
}

// Flags.
var (
	listFormat    string
	listOffline   bool
	addTitle      string
	updateTitle   string
	updateContent string
	updateURI     string
	updateFile    string
	reindexAll    bool
	removeYes     bool
	viewOpen      bool
	viewDownload  string
	viewText      bool
	exportFormat  string
	exportFile    string
)

func init() {
	sourceListCmd.Flags().StringVarP(&listFormat, "output", "o", formatTable, "output format: table, json or yaml")
	sourceListCmd.Flags().BoolVar(&listOffline, "offline", false, "read the cached list instead of the backend")

	sourceAddTextCmd.Flags().StringVarP(&addTitle, "title", "t", "", "title (default: start of the content)")
	sourceAddFileCmd.Flags().StringVarP(&addTitle, "title", "t", "", "title (default: file name)")
	sourceAddCmd.AddCommand(sourceAddTextCmd)
	sourceAddCmd.AddCommand(sourceAddURLCmd)
	sourceAddCmd.AddCommand(sourceAddFileCmd)

	sourceUpdateCmd.Flags().StringVarP(&updateTitle, "title", "t", "", "new title")
	sourceUpdateCmd.Flags().StringVar(&updateContent, "content", "", "new text content")
	sourceUpdateCmd.Flags().StringVar(&updateURI, "uri", "", "new link address")
	sourceUpdateCmd.Flags().StringVar(&updateFile, "file", "", "replacement document")
	sourceUpdateCmd.MarkFlagsMutuallyExclusive("content", "uri", "file")

	sourceReindexCmd.Flags().BoolVar(&reindexAll, "all", false, "reindex every source")
	sourceRemoveCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "do not ask for confirmation")

	sourceViewCmd.Flags().BoolVar(&viewOpen, "open", false, "open the preview or link in the browser")
	sourceViewCmd.Flags().StringVar(&viewDownload, "download", "", "open the download with this label (e.g. Original, PDF)")
	sourceViewCmd.Flags().BoolVar(&viewText, "text", false, "print the extracted text of a document")

	sourceExportCmd.Flags().StringVarP(&exportFormat, "output", "o", formatJSON, "output format: json or yaml")
	sourceExportCmd.Flags().StringVarP(&exportFile, "file", "f", "", "write to this file instead of standard output")

	sourceCmd.AddCommand(sourceListCmd)
	sourceCmd.AddCommand(sourceAddCmd)
	sourceCmd.AddCommand(sourceUpdateCmd)
	sourceCmd.AddCommand(sourcePinCmd)
	sourceCmd.AddCommand(sourceUnpinCmd)
	sourceCmd.AddCommand(sourceReindexCmd)
	sourceCmd.AddCommand(sourceRemoveCmd)
	sourceCmd.AddCommand(sourceViewCmd)
	sourceCmd.AddCommand(sourceExportCmd)
	sourceCmd.AddCommand(sourceWatchCmd)
	rootCmd.AddCommand(sourceCmd)
}

func runSourceList(cmd *cobra.Command, _ []string) error {
	if err := validateFormat(listFormat, formatTable, formatJSON, formatYAML); err != nil {
		return err
	}
	svc, err := requireSources()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var sources []domain.Source
	if listOffline {
		cached, fetchedAt, err := svc.Cached(ctx)
		if err != nil {
			return fmt.Errorf("failed to read cached sources: %w", err)
		}
		sources = cached
		if listFormat == formatTable {
			if fetchedAt.IsZero() {
				cmd.Println("No cached list yet; run 'knowctl source list' while online.")
				return nil
			}
			cmd.Printf("Cached at %s\n", fetchedAt.Format("2006-01-02 15:04:05"))
		}
	} else {
		sources, err = svc.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list sources: %w", err)
		}
	}

	if listFormat != formatTable {
		return writeStructured(cmd.OutOrStdout(), listFormat, toRecords(sources))
	}
	if len(sources) == 0 {
		cmd.Println("No sources yet. Add one with 'knowctl source add'.")
		return nil
	}
	if err := writeSourceTable(cmd.OutOrStdout(), sources, excerptLimit()); err != nil {
		return err
	}
	cmd.Printf("Total: %d sources\n", len(sources))
	return nil
}

func runSourceAddText(cmd *cobra.Command, args []string) error {
	svc, err := requireSources()
	if err != nil {
		return err
	}

	content := strings.Join(args, " ")
	if len(args) == 0 || content == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}
		content = string(data)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("content is empty: %w", domain.ErrInvalidInput)
	}

	src, err := svc.Add(cmd.Context(), domain.NewTextDraft(strings.TrimSpace(addTitle), content))
	if err != nil {
		return fmt.Errorf("failed to add text: %w", err)
	}
	cmd.Printf("Text added: %s\n", src.ID)
	return nil
}

func runSourceAddURL(cmd *cobra.Command, args []string) error {
	svc, err := requireSources()
	if err != nil {
		return err
	}

	uri := strings.TrimSpace(args[0])
	if uri == "" {
		return fmt.Errorf("uri is empty: %w", domain.ErrInvalidInput)
	}
	if !domain.IsSafeURL(uri) {
		cmd.PrintErrf("Warning: %s is not an http, https or blob address\n", uri)
	}

	src, err := svc.Add(cmd.Context(), domain.NewURLDraft(uri))
	if err != nil {
		return fmt.Errorf("failed to add link: %w", err)
	}
	cmd.Printf("Link added: %s\n", src.ID)
	return nil
}

func runSourceAddFile(cmd *cobra.Command, args []string) error {
	svc, err := requireSources()
	if err != nil {
		return err
	}

	file, err := admitPaths(cmd, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	result, err := svc.Upload(ctx, *file, "")
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", file.Name, err)
	}

	title := strings.TrimSpace(addTitle)
	if title != "" && title != result.Filename {
		if _, err := svc.Update(ctx, result.SourceID, domain.TitlePatch(title)); err != nil {
			return fmt.Errorf("uploaded %s but could not set title: %w", result.Filename, err)
		}
	}
	cmd.Printf("Uploaded %s: %s\n", result.Filename, result.SourceID)
	return nil
}

// admitPaths applies the image filter to a path selection.
func admitPaths(cmd *cobra.Command, paths []string) (*domain.FileHandle, error) {
	files := make([]domain.FileHandle, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("file not found: %s: %w", p, domain.ErrInvalidInput)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory: %w", p, domain.ErrInvalidInput)
		}
		files = append(files, domain.NewFileHandle(p))
	}

	admission := domain.AdmitFiles(files)
	if admission.AllRejected() {
		return nil, fmt.Errorf("image uploads are disabled: %w", domain.ErrImagesNotAllowed)
	}
	if admission.Rejected > 0 {
		cmd.PrintErrf("%d image(s) discarded\n", admission.Rejected)
	}
	return admission.File, nil
}

func runSourceUpdate(cmd *cobra.Command, args []string) error {
	svc, err := requireSources()
	if err != nil {
		return err
	}

	id := args[0]
	ctx := cmd.Context()
	title := strings.TrimSpace(updateTitle)

	var patch domain.Patch
	switch {
	case cmd.Flags().Changed("content"):
		content := strings.TrimSpace(updateContent)
		if content == "" {
			return fmt.Errorf("content is empty: %w", domain.ErrInvalidInput)
		}
		if title == "" {
			title = domain.DefaultTitle(content)
		}
		patch = domain.TextPatch(title, content)

	case cmd.Flags().Changed("uri"):
		uri := strings.TrimSpace(updateURI)
		if uri == "" {
			return fmt.Errorf("uri is empty: %w", domain.ErrInvalidInput)
		}
		patch = domain.URLPatch(uri)

	case cmd.Flags().Changed("file"):
		file, err := admitPaths(cmd, []string{updateFile})
		if err != nil {
			return err
		}
		result, err := svc.Upload(ctx, *file, id)
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", file.Name, err)
		}
		patch = domain.FileReplacementPatch(result.Filename, result.FileURL)
		if title != "" {
			patch.Title = &title
		}

	case title != "":
		patch = domain.TitlePatch(title)

	default:
		return fmt.Errorf("nothing to update: pass --title, --content, --uri or --file: %w", domain.ErrInvalidInput)
	}

	if _, err := svc.Update(ctx, id, patch); err != nil {
		return fmt.Errorf("failed to update %s: %w", id, err)
	}
	cmd.Printf("Source updated: %s\n", id)
	return nil
}

func runSourcePin(cmd *cobra.Command, id string, pinned bool) error {
	svc, err := requireSources()
	if err != nil {
		return err
	}
	if _, err := svc.Update(cmd.Context(), id, domain.PinPatch(pinned)); err != nil {
		return fmt.Errorf("failed to update %s: %w", id, err)
	}
	if pinned {
		cmd.Printf("Pinned: %s\n", id)
	} else {
		cmd.Printf("Unpinned: %s\n", id)
	}
	return nil
}

func runSourceReindex(cmd *cobra.Command, args []string) error {
	svc, err := requireSources()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if !reindexAll {
		if len(args) == 0 {
			return fmt.Errorf("pass a source id or --all: %w", domain.ErrInvalidInput)
		}
		if _, err := svc.Reindex(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to reindex %s: %w", args[0], err)
		}
		cmd.Printf("Reindex requested: %s\n", args[0])
		return nil
	}

	if len(args) > 0 {
		return fmt.Errorf("--all takes no source id: %w", domain.ErrInvalidInput)
	}
	sources, err := svc.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}
	if len(sources) == 0 {
		cmd.Println("Nothing to reindex.")
		return nil
	}
	ids := make([]string, len(sources))
	for i := range sources {
		ids[i] = sources[i].ID
	}

	done, err := svc.ReindexAll(ctx, ids)
	cmd.Printf("Reindexed %d of %d sources\n", done, len(ids))
	if err != nil {
		return fmt.Errorf("reindex all: %w", err)
	}
	return nil
}

func runSourceRemove(cmd *cobra.Command, args []string) error {
	svc, err := requireSources()
	if err != nil {
		return err
	}

	id := args[0]
	if !removeYes {
		ok, err := confirm(cmd, fmt.Sprintf("Remove source %s?", id))
		if err != nil {
			return err
		}
		if !ok {
			cmd.Println("Cancelled.")
			return nil
		}
	}

	if err := svc.Remove(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to remove %s: %w", id, err)
	}
	cmd.Printf("Source removed: %s\n", id)
	return nil
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	cmd.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func runSourceView(cmd *cobra.Command, args []string) error {
	svc, err := requireSources()
	if err != nil {
		return err
	}

	id := args[0]
	detail, err := svc.Detail(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", id, err)
	}
	if detail.ID == "" {
		detail.ID = id
	}

	lines, ok := domain.Visit[detailLines](detail, detailPrinter{showText: viewText})
	if !ok {
		return fmt.Errorf("source %s: %w", id, domain.ErrUnsupportedType)
	}

	cmd.Printf("%s  %s\n", detail.Type.Label(), detail.DisplayTitle())
	cmd.Printf("  ID:      %s\n", detail.ID)
	cmd.Printf("  Status:  %s\n", statusText(detail))
	if detail.LastUpdated != "" {
		cmd.Printf("  Updated: %s\n", detail.LastUpdated)
	}
	if detail.Pinned {
		cmd.Println("  Pinned:  yes")
	}
	cmd.Println()
	for _, line := range lines.text {
		cmd.Println(line)
	}

	switch {
	case viewDownload != "":
		target, ok := findTarget(lines.targets, viewDownload)
		if !ok {
			return fmt.Errorf("no %q download for %s: %w", viewDownload, id, domain.ErrNotFound)
		}
		return openLink(cmd, target.URL, target.Label)
	case viewOpen:
		if lines.external == "" {
			return fmt.Errorf("nothing to open for %s: %w", id, domain.ErrNotFound)
		}
		return openLink(cmd, lines.external, "link")
	}
	return nil
}

// detailLines is the printable form of a source detail.
type detailLines struct {
	text     []string
	external string
	targets  []domain.DownloadTarget
}

type detailPrinter struct {
	showText bool
}

func (p detailPrinter) VisitText(t domain.TextPayload) detailLines {
	return detailLines{text: []string{t.Content}}
}

func (p detailPrinter) VisitFile(f domain.FilePayload) detailLines {
	out := detailLines{targets: f.DownloadTargets()}
	out.text = append(out.text, "File: "+f.Filename)

	preview := f.PreviewURL()
	switch {
	case preview != "":
		out.text = append(out.text, "Preview: "+resolveLink(preview))
		out.external = preview
	case f.Generation == domain.PreviewSkippedNoConverter:
		out.text = append(out.text, "No preview: the server has no document converter installed")
	case f.Generation == domain.PreviewFailed:
		out.text = append(out.text, "Preview generation failed")
	}
	if out.external == "" && len(out.targets) > 0 {
		out.external = out.targets[0].URL
	}

	for _, t := range out.targets {
		out.text = append(out.text, fmt.Sprintf("Download (%s): %s", t.Label, resolveLink(t.URL)))
	}

	if p.showText {
		out.text = append(out.text, "")
		if f.ExtractedText == "" {
			out.text = append(out.text, "No extracted text for this file")
		} else {
			out.text = append(out.text, f.ExtractedText)
		}
	}
	return out
}

func (p detailPrinter) VisitURL(u domain.URLPayload) detailLines {
	out := detailLines{text: []string{"Link: " + u.URI}}
	if domain.IsSafeURL(u.URI) {
		out.external = u.URI
	}
	if u.Preview != "" {
		out.text = append(out.text, "", u.Preview)
	}
	return out
}

func findTarget(targets []domain.DownloadTarget, label string) (domain.DownloadTarget, bool) {
	for _, t := range targets {
		if strings.EqualFold(t.Label, label) {
			return t, true
		}
	}
	return domain.DownloadTarget{}, false
}

// resolveLink makes a backend-relative link absolute for display.
func resolveLink(raw string) string {
	if linkService == nil {
		return raw
	}
	link, ok := linkService.Resolve(raw)
	if !ok {
		return raw + " (blocked)"
	}
	return link
}

func openLink(cmd *cobra.Command, raw, label string) error {
	if linkService == nil {
		return errors.New("link service not configured")
	}
	if err := linkService.Open(raw); err != nil {
		return fmt.Errorf("failed to open %s: %w", label, err)
	}
	cmd.Printf("Opened %s\n", label)
	return nil
}

func runSourceExport(cmd *cobra.Command, _ []string) error {
	if err := validateFormat(exportFormat, formatJSON, formatYAML); err != nil {
		return err
	}
	svc, err := requireSources()
	if err != nil {
		return err
	}

	sources, err := svc.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	if exportFile == "" {
		return writeStructured(cmd.OutOrStdout(), exportFormat, toRecords(sources))
	}

	f, err := os.Create(exportFile)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", exportFile, err)
	}
	if err := writeStructured(f, exportFormat, toRecords(sources)); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", exportFile, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportFile, err)
	}
	cmd.Printf("Exported %d sources to %s\n", len(sources), exportFile)
	return nil
}

func runSourceWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", args[0])
	err := ingestService.Run(ctx, args[0], func(ev services.IngestEvent) {
		switch {
		case ev.Skipped:
			cmd.Printf("skipped  %s\n", ev.Path)
		case ev.Err != nil:
			cmd.PrintErrf("failed   %s: %v\n", ev.Path, ev.Err)
		case ev.Result != nil:
			cmd.Printf("uploaded %s -> %s\n", ev.Path, ev.Result.SourceID)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func excerptLimit() int {
	if excerptLength > 0 {
		return excerptLength
	}
	return domain.ExcerptLength
}
