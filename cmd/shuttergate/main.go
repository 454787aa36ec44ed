package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/On-Jun9/ShutterGate/internal/config"
	"github.com/On-Jun9/ShutterGate/internal/log"
	"github.com/On-Jun9/ShutterGate/internal/pipeline"
	"github.com/On-Jun9/ShutterGate/internal/scanner"
	"github.com/On-Jun9/ShutterGate/internal/sink"
	"github.com/On-Jun9/ShutterGate/internal/timewindow"
	"github.com/On-Jun9/ShutterGate/pkg/types"
)

var (
	appVersion = "0.1.0"

	cfgFile        string
	profileName    string
	dest           string
	eventName      string
	timezone       string
	schedule       types.EventSchedule
	uploader       string
	jobs           int
	dedupMethod    string
	conflictPolicy string
	logFile        string
	logJSON        bool
	dryRun         bool
	hashVerify     bool
	lenient        bool

	profileDescription string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "shuttergate",
	Short: "Validate and compress event photo uploads",
	Long: `ShutterGate checks that photos were taken directly on a phone camera or
Snapchat during an event's time window, compresses oversized images, and files
the accepted ones by capture date (YYYY/MM/DD).`,
	SilenceUsage: true,
}

var validateCmd = &cobra.Command{
	Use:   "validate <dir>",
	Short: "Validate every image under a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Event schedule commands",
}

var scheduleValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check an event schedule against the current time",
	RunE:  runScheduleValidate,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage saved validation profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	RunE:  runProfileList,
}

var profileSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the current validation settings as a profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileSave,
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pm, err := config.NewProfileManager()
		if err != nil {
			return err
		}
		return pm.DeleteProfile(args[0])
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(appVersion)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd, scheduleCmd, profileCmd, versionCmd)
	scheduleCmd.AddCommand(scheduleValidateCmd)
	profileCmd.AddCommand(profileListCmd, profileSaveCmd, profileDeleteCmd)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "", "IANA timezone of the event schedule")

	for _, cmd := range []*cobra.Command{validateCmd, scheduleValidateCmd} {
		cmd.Flags().StringVar(&schedule.StartDate, "start-date", "", "event start date (YYYY-MM-DD)")
		cmd.Flags().StringVar(&schedule.StartTime, "start-time", "", "event start time (HH:MM)")
		cmd.Flags().StringVar(&schedule.EndDate, "end-date", "", "event end date (YYYY-MM-DD)")
		cmd.Flags().StringVar(&schedule.EndTime, "end-time", "", "event end time (HH:MM)")
	}

	validateCmd.Flags().StringVarP(&profileName, "profile", "p", "", "saved validation profile to apply")
	validateCmd.Flags().StringVarP(&dest, "dest", "d", "", "store accepted files under this directory")
	validateCmd.Flags().StringVar(&eventName, "event", "", "event name used as the top-level destination folder")
	validateCmd.Flags().StringVarP(&uploader, "user", "u", "", "uploader label recorded on accepted files")
	validateCmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "number of concurrent workers (0=auto)")
	validateCmd.Flags().StringVar(&dedupMethod, "dedup", "", "dedup method: name-size, hash")
	validateCmd.Flags().StringVar(&conflictPolicy, "conflict", "", "conflict policy: skip, rename, overwrite")
	validateCmd.Flags().StringVar(&logFile, "log-file", "", "log file path")
	validateCmd.Flags().BoolVar(&logJSON, "log-json", false, "output JSON logs")
	validateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and plan without writing files")
	validateCmd.Flags().BoolVar(&hashVerify, "hash-verify", false, "verify stored files with SHA-256")
	validateCmd.Flags().BoolVar(&lenient, "allow-unverified", false, "accept photos whose camera source cannot be verified")

	profileSaveCmd.Flags().StringVar(&profileDescription, "description", "", "profile description")
}

func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if cfgFile != "" {
		var err error
		cfg, err = config.LoadFromFile(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	if timezone != "" {
		cfg.Event.Timezone = timezone
	}
	if schedule.StartDate != "" {
		cfg.Event.Schedule = schedule
	}
	return cfg, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if profileName != "" {
		pm, err := config.NewProfileManager()
		if err != nil {
			return err
		}
		profile, err := pm.LoadProfile(profileName)
		if err != nil {
			return err
		}
		profile.Apply(cfg)
	}

	if dest != "" {
		cfg.Dest = dest
	}
	if eventName != "" {
		cfg.Event.Name = eventName
	}
	if uploader != "" {
		cfg.UploaderLabel = uploader
	}
	if jobs > 0 {
		cfg.Jobs = jobs
	}
	if dedupMethod != "" {
		cfg.DedupMethod = types.DedupMethod(dedupMethod)
	}
	if conflictPolicy != "" {
		cfg.ConflictPolicy = types.ConflictPolicy(conflictPolicy)
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if logJSON {
		cfg.LogJSON = true
	}
	if dryRun {
		cfg.DryRun = true
	}
	if hashVerify {
		cfg.HashVerify = true
	}
	if lenient {
		cfg.Validation.RequireOriginalPhoto = false
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Event.Schedule.StartDate == "" {
		return fmt.Errorf("event schedule is required (--start-date, --start-time, --end-date, --end-time)")
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	window, err := timewindow.EventFromSchedule(cfg.Event.Schedule, loc)
	if err != nil {
		return err
	}

	logger, err := log.New(cfg.LogFile, cfg.LogJSON, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	var store *sink.LocalSink
	if cfg.Dest != "" {
		store, err = sink.New(cfg.Dest, sink.Options{
			EventName:      cfg.Event.Name,
			DryRun:         cfg.DryRun,
			HashVerify:     cfg.HashVerify,
			DedupMethod:    cfg.DedupMethod,
			ConflictPolicy: cfg.ConflictPolicy,
		}, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		p.SetStore(store)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := scanner.New(cfg.Validation.AllowedExtensions).Scan(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", args[0], err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no files with extensions %v under %s", cfg.Validation.AllowedExtensions, args[0])
	}

	result, err := p.ValidateBatch(ctx, files, window, cfg.UploaderLabel)
	if result != nil {
		printResult(result, store)
	}
	return err
}

func printResult(result *types.BatchResult, store *sink.LocalSink) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w)
	for _, f := range result.Accepted {
		fmt.Fprintf(w, "ACCEPTED\t%s\t%s\t%s\n", f.OriginalName, f.CreatedAt.Format(time.RFC3339), f.CreationSource)
	}
	for _, f := range result.Rejected {
		fmt.Fprintf(w, "REJECTED\t%s\t%s\n", f.Name, f.Reason)
	}
	if store == nil {
		return
	}
	for _, r := range store.Results() {
		line := fmt.Sprintf("%s\t%s\t%s", r.Action, r.Name, r.DestPath)
		if r.Error != "" {
			line += "\t" + r.Error
		}
		fmt.Fprintln(w, line)
	}
}

func runScheduleValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	result := timewindow.ValidateEventSchedule(cfg.Event.Schedule, time.Now().In(loc))
	if !result.IsValid {
		for _, msg := range result.Errors {
			fmt.Fprintln(os.Stderr, msg)
		}
		return fmt.Errorf("invalid event schedule")
	}
	fmt.Println("Event schedule is valid")
	return nil
}

func runProfileList(cmd *cobra.Command, args []string) error {
	pm, err := config.NewProfileManager()
	if err != nil {
		return err
	}
	profiles, err := pm.ListProfiles()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "NAME\tSTRICT\tMAX SIZE\tBUFFER\tDESCRIPTION")
	for _, p := range profiles {
		fmt.Fprintf(w, "%s\t%t\t%.1fMB\t%dm\t%s\n",
			p.Name,
			p.Validation.RequireOriginalPhoto,
			float64(p.Validation.MaxFileSizeBytes)/config.MiB,
			p.Validation.TimeBufferMinutes,
			p.Description,
		)
	}
	return nil
}

func runProfileSave(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	pm, err := config.NewProfileManager()
	if err != nil {
		return err
	}
	if err := pm.SaveProfile(config.ProfileFromConfig(cfg, args[0], profileDescription)); err != nil {
		return err
	}
	fmt.Printf("Saved profile %q\n", args[0])
	return nil
}
