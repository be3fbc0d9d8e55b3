package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/writedesk/internal/client/models"
	"github.com/dmitrijs2005/writedesk/internal/filex"
)

const (
	timeLayout          = "2006-01-02 15:04"
	defaultExportFormat = "pdf"
)

var errMissingID = errors.New("project id required")

// List refreshes the project list and prints the visible view: the current
// search results when a search is active, otherwise all projects.
func (a *App) List(ctx context.Context) error {
	if _, err := a.cache.FetchAll(ctx); err != nil {
		return a.report(err)
	}

	items, searching := a.cache.Visible()
	if searching {
		fmt.Fprintln(a.out, "Showing search results (run 'search' without a query to clear).")
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No projects.")
		return nil
	}
	a.printResults(items, searching)
	return nil
}

// New prompts for a title, category and access type and creates a project.
func (a *App) New(ctx context.Context) error {
	title, err := getSimpleText(a.reader, "Enter title", a.out)
	if err != nil {
		return err
	}

	category, err := getSimpleText(a.reader,
		fmt.Sprintf("Enter category (%s, %s, %s, %s)",
			models.CategoryIdeation, models.CategoryResearchPaper,
			models.CategoryAssignment, models.CategoryArticle), a.out)
	if err != nil {
		return err
	}

	access, err := getSimpleText(a.reader, "Enter access type (private, public) [private]", a.out)
	if err != nil {
		return err
	}

	p, err := a.cache.Create(ctx, models.ProjectDraft{
		Title:      title,
		Category:   models.Category(category),
		AccessType: models.AccessType(access),
	})
	if err != nil {
		return a.report(err)
	}

	fmt.Fprintf(a.out, "Created project %s (%s).\n", p.ID, p.Title)
	return nil
}

// Rename changes a project's title. Usage: rename <id> [new title].
func (a *App) Rename(ctx context.Context, args []string) error {
	id, err := a.requireID(args)
	if err != nil {
		return err
	}

	title := strings.Join(args[1:], " ")
	if title == "" {
		if title, err = getSimpleText(a.reader, "Enter new title", a.out); err != nil {
			return err
		}
	}

	p, err := a.cache.Update(ctx, id, models.ProjectPatch{Title: &title})
	if err != nil {
		return a.report(err)
	}

	fmt.Fprintf(a.out, "Renamed project %s to %q.\n", p.ID, p.Title)
	return nil
}

// Delete moves a project to the trash. Usage: delete <id>.
func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := a.requireID(args)
	if err != nil {
		return err
	}
	if err := a.cache.Remove(ctx, id); err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Project %s moved to trash.\n", id)
	return nil
}

// Purge deletes a project for good after a confirmation. Usage: purge <id>.
func (a *App) Purge(ctx context.Context, args []string) error {
	id, err := a.requireID(args)
	if err != nil {
		return err
	}

	answer, err := getSimpleText(a.reader,
		fmt.Sprintf("Permanently delete %s? This cannot be undone. (y/N)", id), a.out)
	if err != nil {
		return err
	}
	if !isYes(answer) {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	if err := a.cache.PermanentlyRemove(ctx, id); err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Project %s permanently deleted.\n", id)
	return nil
}

// Search runs a ranked search. Without a query the search is cleared and the
// full list becomes visible again. Usage: search [query].
func (a *App) Search(ctx context.Context, args []string) error {
	query := strings.Join(args, " ")

	results, err := a.cache.Search(ctx, query, 0)
	if err != nil {
		return a.report(err)
	}

	if strings.TrimSpace(query) == "" {
		fmt.Fprintln(a.out, "Search cleared.")
		return nil
	}
	if len(results) == 0 {
		fmt.Fprintf(a.out, "Nothing matches %q.\n", query)
		return nil
	}
	a.printResults(results, true)
	return nil
}

// Trash prints the projects in the trash.
func (a *App) Trash(ctx context.Context) error {
	trashed, err := a.cache.FetchTrash(ctx)
	if err != nil {
		return a.report(err)
	}
	if len(trashed) == 0 {
		fmt.Fprintln(a.out, "Trash is empty.")
		return nil
	}
	a.printProjects(trashed)
	return nil
}

// Restore brings a project back from the trash. Usage: restore <id>.
func (a *App) Restore(ctx context.Context, args []string) error {
	id, err := a.requireID(args)
	if err != nil {
		return err
	}
	if err := a.cache.RestoreFromTrash(ctx, id); err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Project %s restored. Run 'list' to see it.\n", id)
	return nil
}

// Show prints a single project. Usage: show <id>.
func (a *App) Show(ctx context.Context, args []string) error {
	id, err := a.requireID(args)
	if err != nil {
		return err
	}

	p, err := a.cache.Get(ctx, id)
	if err != nil {
		return a.report(err)
	}

	fmt.Fprintf(a.out, "ID:       %s\n", p.ID)
	fmt.Fprintf(a.out, "Title:    %s\n", p.Title)
	fmt.Fprintf(a.out, "Category: %s\n", p.Category)
	fmt.Fprintf(a.out, "Access:   %s\n", p.AccessType)
	fmt.Fprintf(a.out, "Created:  %s\n", formatTime(p.CreatedAt))
	fmt.Fprintf(a.out, "Updated:  %s\n", formatTime(p.UpdatedAt))
	if len(p.Metadata) > 0 {
		fmt.Fprintf(a.out, "Metadata:\n%s\n", indentJSON(p.Metadata))
	}
	return nil
}

// Export downloads a rendered document into a local file.
// Usage: export <id> [format] [file]; format defaults to pdf and file to
// "<id>.<format>".
func (a *App) Export(ctx context.Context, args []string) error {
	id, err := a.requireID(args)
	if err != nil {
		return err
	}

	format := defaultExportFormat
	if len(args) > 1 {
		format = args[1]
	}
	path := fmt.Sprintf("%s.%s", id, format)
	if len(args) > 2 {
		path = args[2]
	}

	if _, err := filex.EnsureParentDir(path); err != nil {
		return a.report(err)
	}
	f, err := os.Create(path)
	if err != nil {
		return a.report(err)
	}

	n, err := a.cache.Export(ctx, id, format, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return a.report(err)
	}

	fmt.Fprintf(a.out, "Exported %s to %s (%d bytes).\n", id, path, n)
	return nil
}

func (a *App) requireID(args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", a.report(errMissingID)
	}
	return args[0], nil
}

func (a *App) printProjects(list []models.Project) {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tACCESS\tUPDATED")
	for _, p := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Title, p.Category, p.AccessType, formatTime(p.UpdatedAt))
	}
	_ = w.Flush()
}

func (a *App) printResults(list []models.SearchResult, withScore bool) {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	if withScore {
		fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tUPDATED\tSCORE")
	} else {
		fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tUPDATED")
	}
	for _, r := range list {
		if withScore {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\n", r.ID, r.Title, r.Category, formatTime(r.UpdatedAt), r.RelevanceScore)
		} else {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Title, r.Category, formatTime(r.UpdatedAt))
		}
	}
	_ = w.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func indentJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "  ", "  "); err != nil {
		return "  " + string(raw)
	}
	return "  " + buf.String()
}
