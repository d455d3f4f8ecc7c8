package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mantooth/blogsmith/internal/catalog"
	"github.com/mantooth/blogsmith/internal/config"
	"github.com/mantooth/blogsmith/internal/observability"
	"github.com/mantooth/blogsmith/internal/pipeline"
	"github.com/mantooth/blogsmith/internal/progress"
	"github.com/mantooth/blogsmith/internal/render"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "blogsmith",
	Short: "Turn PDF drafts into published blog posts",
	RunE:  runReview,
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Open the interactive catalog review shell",
	RunE:  runReview,
}

var processCmd = &cobra.Command{
	Use:   "process [source]",
	Short: "Process a PDF, text file, or URL into a blog post",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProcess,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List discovered source files and their catalog status",
	RunE:  runScan,
}

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Report duplicate entries and catalog/disk orphans",
	RunE:  runMaintain,
}

var nukeCmd = &cobra.Command{
	Use:   "nuke",
	Short: "Back up, then delete every entry and rendered post",
	RunE:  runNuke,
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the catalog and rendered posts",
	RunE:  runBackup,
}

var restoreCmd = &cobra.Command{
	Use:   "restore [snapshot-id]",
	Short: "Restore the catalog and rendered posts from a snapshot",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRestore,
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recent published posts from the shared index",
	RunE:  runRecent,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("blogsmith %s\n", Version)
	},
}

var (
	flagDir     string
	flagVerbose bool
	flagAll     bool
	flagFix     bool
	flagYes     bool
	flagList    bool
	flagCount   int
)

func init() {
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(maintainCmd)
	rootCmd.AddCommand(nukeCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVarP(&flagDir, "dir", "C", ".", "Project directory holding blogsmith.yaml")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable detailed logging")
	processCmd.Flags().BoolVarP(&flagAll, "all", "a", false, "Process every PDF in the input directory")
	maintainCmd.Flags().BoolVarP(&flagFix, "fix", "f", false, "Remove duplicate entries, keeping the earliest")
	nukeCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "Skip the confirmation prompt")
	restoreCmd.Flags().BoolVarP(&flagList, "list", "l", false, "List available snapshots instead of restoring")
	recentCmd.Flags().IntVarP(&flagCount, "count", "n", 3, "Number of posts to show")
}

func Execute() error {
	ctx := context.Background()
	tp, err := observability.InitTracer(ctx, "blogsmith", Version)
	if err != nil {
		return err
	}
	defer func() { _ = tp.Shutdown(ctx) }()

	return rootCmd.ExecuteContext(ctx)
}

// newPipeline loads config and catalog and wires the processing pipeline.
// Every subcommand starts here so they all agree on paths and policy.
func newPipeline() (*pipeline.Pipeline, config.Config, error) {
	log := observability.InitLogger(flagVerbose)

	cfg, err := config.Load(flagDir)
	if err != nil {
		return nil, config.Config{}, err
	}

	cat, err := catalog.Load(cfg.CatalogPath, cfg.DisambiguateSlugs)
	if err != nil {
		return nil, config.Config{}, err
	}

	r, err := render.New(cfg.OutputDir, cfg.SiteDir, cfg.SiteName, cfg.PostURLPrefix)
	if err != nil {
		return nil, config.Config{}, err
	}

	return &pipeline.Pipeline{
		Config:   cfg,
		Catalog:  cat,
		Renderer: r,
		Log:      log,
	}, cfg, nil
}

func runReview(cmd *cobra.Command, args []string) error {
	p, _, err := newPipeline()
	if err != nil {
		return err
	}
	return runReviewShell(cmd.Context(), p)
}

func runProcess(cmd *cobra.Command, args []string) error {
	if flagAll && len(args) > 0 {
		return fmt.Errorf("--all and an explicit source are mutually exclusive")
	}
	if !flagAll && len(args) == 0 {
		return fmt.Errorf("either a source argument or --all (-a) is required")
	}

	p, _, err := newPipeline()
	if err != nil {
		return err
	}

	var onProgress progress.Callback
	if !flagVerbose {
		r := progress.NewBarRenderer(os.Stdout)
		defer r.Finish()
		onProgress = r.Handle
	}

	if flagAll {
		processed, failures, err := p.ProcessAll(cmd.Context(), onProgress)
		if err != nil {
			return err
		}
		fmt.Printf("\nProcessed %d source(s)\n", processed)
		if len(failures) > 0 {
			names := make([]string, 0, len(failures))
			for name := range failures {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(os.Stderr, "  FAILED %s: %v\n", name, failures[name])
			}
			return fmt.Errorf("%d source(s) failed", len(failures))
		}
		return nil
	}

	_, err = p.Run(cmd.Context(), pipeline.Options{
		Source:     args[0],
		OnProgress: onProgress,
	})
	return err
}

func runScan(cmd *cobra.Command, args []string) error {
	p, cfg, err := newPipeline()
	if err != nil {
		return err
	}

	records, err := p.Scan()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Printf("No PDF files found in %s\n", cfg.InputDir)
		return nil
	}

	fmt.Printf("\n%d source file(s) in %s:\n\n", len(records), cfg.InputDir)
	fmt.Printf("  %-40s %-12s %8s  %s\n", "FILE", "STATUS", "SIZE", "SLUG")
	for _, rec := range records {
		fmt.Printf("  %-40s %-12s %6.1fMB  %s\n", rec.Name, rec.Status, rec.SizeMB, rec.Slug)
	}
	fmt.Println()
	return nil
}

func runMaintain(cmd *cobra.Command, args []string) error {
	p, _, err := newPipeline()
	if err != nil {
		return err
	}

	clean := true

	dupes := p.Catalog.FindDuplicates()
	for _, group := range dupes {
		clean = false
		fmt.Printf("Duplicate %q:\n", group.Key)
		for _, e := range group.Entries {
			fmt.Printf("  %s (%s, created %s)\n", e.Slug, e.Status, e.CreatedAt)
		}
	}
	if flagFix && len(dupes) > 0 {
		fmt.Printf("Remove %d duplicate group(s), keeping the earliest entry of each? (y/N): ", len(dupes))
		var answer string
		fmt.Scanln(&answer)
		if strings.EqualFold(strings.TrimSpace(answer), "y") {
			removed, err := removeDuplicates(p, dupes)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d duplicate entr%s\n", removed, plural(removed, "y", "ies"))
		}
	}

	report, err := p.ListOrphans()
	if err != nil {
		return err
	}
	for _, e := range report.MissingFiles {
		clean = false
		fmt.Printf("Missing file: %s (%s entry %q)\n", e.FileName, e.Status, e.Slug)
	}
	for _, f := range report.StrayFiles {
		clean = false
		fmt.Printf("Stray file: %s (no catalog entry)\n", f)
	}
	if flagFix && len(report.StrayFiles) > 0 {
		fmt.Printf("Delete %d stray file(s)? (y/N): ", len(report.StrayFiles))
		var answer string
		fmt.Scanln(&answer)
		if strings.EqualFold(strings.TrimSpace(answer), "y") {
			removed, err := p.RemoveStrays(report.StrayFiles)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d stray file(s)\n", removed)
		}
	}

	if flagFix {
		if err := p.RefreshSite(); err != nil {
			return err
		}
		fmt.Println("Rebuilt listing page and index.")
		return nil
	}
	if clean {
		fmt.Println("Catalog and rendered output agree; nothing to do.")
	}
	return nil
}

// removeDuplicates keeps the earliest entry of each group and removes the
// rest, including their rendered files.
func removeDuplicates(p *pipeline.Pipeline, groups []catalog.DuplicateGroup) (int, error) {
	removed := 0
	seen := make(map[string]bool)
	for _, group := range groups {
		keep := group.Entries[0]
		for _, e := range group.Entries[1:] {
			if e.CreatedAt < keep.CreatedAt {
				keep = e
			}
		}
		for _, e := range group.Entries {
			if e.ID == keep.ID || seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			if err := p.Unpublish(e.ID); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

func runNuke(cmd *cobra.Command, args []string) error {
	p, cfg, err := newPipeline()
	if err != nil {
		return err
	}
	if p.Catalog.Len() == 0 {
		fmt.Println("Catalog is already empty.")
		return nil
	}

	if !flagYes {
		fmt.Printf("This deletes all %d entries and their rendered posts (a backup is taken first).\n", p.Catalog.Len())
		fmt.Print("Type 'nuke' to confirm: ")
		var answer string
		fmt.Scanln(&answer)
		if strings.TrimSpace(answer) != "nuke" {
			return fmt.Errorf("cancelled")
		}
	}

	info, err := catalog.Snapshot(cfg.BackupDir, cfg.CatalogPath, cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("pre-nuke backup failed, nothing deleted: %w", err)
	}
	fmt.Printf("Backed up to %s\n", info.Dir)

	entries := p.Catalog.List()
	for _, e := range entries {
		if err := p.Renderer.RemovePost(e, cfg.ImagesDir); err != nil {
			return err
		}
	}
	if err := p.Catalog.Clear(); err != nil {
		return err
	}
	if err := p.RefreshSite(); err != nil {
		return err
	}
	fmt.Printf("Removed %d entr%s. Restore with: blogsmith restore %s\n", len(entries), plural(len(entries), "y", "ies"), info.ID)
	return nil
}

func runBackup(cmd *cobra.Command, args []string) error {
	_, cfg, err := newPipeline()
	if err != nil {
		return err
	}
	info, err := catalog.Snapshot(cfg.BackupDir, cfg.CatalogPath, cfg.OutputDir)
	if err != nil {
		return err
	}
	fmt.Printf("Snapshot %s written to %s\n", info.ID, info.Dir)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	p, cfg, err := newPipeline()
	if err != nil {
		return err
	}

	snapshots, err := catalog.ListSnapshots(cfg.BackupDir)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		return fmt.Errorf("no snapshots in %s", cfg.BackupDir)
	}

	if flagList {
		for _, s := range snapshots {
			fmt.Printf("  %s  %s\n", s.ID, s.Created.Format("2006-01-02 15:04:05"))
		}
		return nil
	}

	// No argument restores the most recent snapshot.
	id := snapshots[len(snapshots)-1].ID
	if len(args) == 1 {
		id = args[0]
	}

	if err := catalog.Restore(cfg.BackupDir, id, cfg.CatalogPath, cfg.OutputDir); err != nil {
		return err
	}

	// Reload and rebuild the listing from the restored catalog.
	cat, err := catalog.Load(cfg.CatalogPath, cfg.DisambiguateSlugs)
	if err != nil {
		return err
	}
	p.Catalog = cat
	if err := p.RefreshSite(); err != nil {
		return err
	}
	fmt.Printf("Restored snapshot %s (%d entries)\n", id, cat.Len())
	return nil
}

func runRecent(cmd *cobra.Command, args []string) error {
	_, cfg, err := newPipeline()
	if err != nil {
		return err
	}

	posts, err := render.RecentPosts(filepath.Join(cfg.SiteDir, render.IndexFileName), flagCount)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		fmt.Println("No published posts yet.")
		return nil
	}
	for _, post := range posts {
		fmt.Printf("  %s  %-40s %s\n", post.PublishDate, post.Title, post.FileName)
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
