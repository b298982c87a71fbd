// Command cropplanctl manages crop plan documents from the terminal: listing,
// creating, copying, exporting, and importing plans against the configured
// storage backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cropplan/internal/core"
)

var exitFunc = os.Exit

func main() {
	logLevel := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
	if strings.EqualFold(os.Getenv("CROPPLAN_LOG_LEVEL"), "debug") {
		logLevel.Set(slog.LevelDebug)
	}

	if len(os.Args) < 2 {
		usage()
		exitFunc(2)
		return
	}

	ctx := context.Background()
	storage, err := core.OpenPlanStorage()
	if err != nil {
		fatal("open storage: %v", err)
		return
	}
	store := core.NewPlanStore(storage)

	switch os.Args[1] {
	case "list":
		err = runList(ctx, store)
	case "create":
		err = runCreate(ctx, store, os.Args[2:])
	case "copy":
		err = runCopy(ctx, store, os.Args[2:])
	case "delete":
		err = runDelete(ctx, store, os.Args[2:])
	case "export":
		err = runExport(ctx, store, os.Args[2:])
	case "import":
		err = runImport(ctx, store, os.Args[2:])
	case "checkpoints":
		err = runCheckpoints(ctx, store, os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		exitFunc(2)
		return
	}
	if err != nil {
		fatal("%v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: cropplanctl <command> [flags]

commands:
  list                          list stored plans
  create  -name N -year Y       create a plan from the standard bed template
  copy    -plan ID [-name N] [-shift-years N] [-unassign]
                                copy a plan, optionally shifting dates
  delete  -plan ID              delete a plan
  export  -plan ID -out FILE    write a plan as a compressed portable file
  import  -in FILE              load a portable plan file into storage
  checkpoints -plan ID [-save NAME | -restore NAME]
                                list, save, or restore named save points

storage is selected via CROPPLAN_STORAGE_DRIVER (memory|sqlite|postgres).`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	exitFunc(1)
}

func runList(ctx context.Context, store *core.PlanStore) error {
	plans, err := store.PlanList(ctx)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		fmt.Println("no plans")
		return nil
	}
	for _, p := range plans {
		fmt.Printf("%s\t%d\t%s\t%d crops\t%s\n", p.ID, p.Year, p.Name, p.CropCount, p.LastModified.Format("2006-01-02 15:04"))
	}
	return nil
}

func runCreate(ctx context.Context, store *core.PlanStore, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "plan name (default derived from year)")
	year := fs.Int("year", 0, "plan year (default next season)")
	template := fs.String("template", core.DefaultTemplateName, "bed layout template")
	if err := fs.Parse(args); err != nil {
		return err
	}
	plan, err := store.CreatePlan(ctx, core.CreatePlanOptions{Name: *name, Year: *year, Template: *template})
	if err != nil {
		return err
	}
	fmt.Printf("created %s %q\n", plan.ID, plan.Metadata.Name)
	return nil
}

func runCopy(ctx context.Context, store *core.PlanStore, args []string) error {
	fs := flag.NewFlagSet("copy", flag.ExitOnError)
	planID := fs.String("plan", "", "source plan id (required)")
	name := fs.String("name", "", "name for the copy")
	shiftYears := fs.Int("shift-years", 0, "shift planting dates by years")
	shiftMonths := fs.Int("shift-months", 0, "shift planting dates by months")
	unassign := fs.Bool("unassign", false, "clear bed assignments in the copy")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *planID == "" {
		return fmt.Errorf("copy: -plan is required")
	}
	if _, err := store.LoadPlan(ctx, *planID); err != nil {
		return err
	}
	plan, err := store.CopyPlan(ctx, core.CopyPlanOptions{
		Name:        *name,
		ShiftYears:  *shiftYears,
		ShiftMonths: *shiftMonths,
		Unassign:    *unassign,
	})
	if err != nil {
		return err
	}
	fmt.Printf("copied to %s %q\n", plan.ID, plan.Metadata.Name)
	return nil
}

func runDelete(ctx context.Context, store *core.PlanStore, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	planID := fs.String("plan", "", "plan id (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *planID == "" {
		return fmt.Errorf("delete: -plan is required")
	}
	if err := store.DeletePlan(ctx, *planID); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", *planID)
	return nil
}

func runExport(ctx context.Context, store *core.PlanStore, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	planID := fs.String("plan", "", "plan id (required)")
	out := fs.String("out", "", "output file (default <plan-name>"+core.FileExtension+")")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *planID == "" {
		return fmt.Errorf("export: -plan is required")
	}
	plan, err := store.LoadPlan(ctx, *planID)
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = strings.ReplaceAll(plan.Metadata.Name, " ", "-") + core.FileExtension
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := store.ExportPlan(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", *planID, path)
	return nil
}

func runImport(ctx context.Context, store *core.PlanStore, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	in := fs.String("in", "", "input file (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("import: -in is required")
	}
	f, err := os.Open(*in)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	plan, err := store.ImportPlan(ctx, f)
	if err != nil {
		return err
	}
	fmt.Printf("imported %s %q\n", plan.ID, plan.Metadata.Name)
	return nil
}

func runCheckpoints(ctx context.Context, store *core.PlanStore, args []string) error {
	fs := flag.NewFlagSet("checkpoints", flag.ExitOnError)
	planID := fs.String("plan", "", "plan id (required)")
	save := fs.String("save", "", "save a checkpoint under this name")
	restore := fs.String("restore", "", "restore the named checkpoint")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *planID == "" {
		return fmt.Errorf("checkpoints: -plan is required")
	}
	if _, err := store.LoadPlan(ctx, *planID); err != nil {
		return err
	}
	switch {
	case *save != "":
		if err := store.SaveCheckpoint(ctx, *save); err != nil {
			return err
		}
		fmt.Printf("checkpoint %q saved\n", *save)
	case *restore != "":
		if _, err := store.RestoreCheckpoint(ctx, *restore); err != nil {
			return err
		}
		fmt.Printf("checkpoint %q restored\n", *restore)
	default:
		cps, err := store.ListCheckpoints(ctx)
		if err != nil {
			return err
		}
		if len(cps) == 0 {
			fmt.Println("no checkpoints")
			return nil
		}
		for _, cp := range cps {
			fmt.Printf("%s\t%s\n", cp.Name, cp.SavedAt.Format("2006-01-02 15:04"))
		}
	}
	return nil
}
