package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/cdo-snapshot-store-go/config"
	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore"
	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore/sqlengine"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2

	defaultConfigPath = "snapshotstore.yaml"
	defaultTimeout    = 30 * time.Second
)

var (
	errMissingIdentity        = errors.New("-type and -id are required")
	errMissingValueObjectType = errors.New("-vo-type is required together with -fragment")
)

type options struct {
	configPath  string
	typeName    string
	localID     string
	fragment    string
	voType      string
	author      string
	changed     string
	toCommit    string
	limit       int
	skip        int
	aggregate   bool
	commitProps bool
	latest      bool
	eventual    bool
	timeout     time.Duration
}

// run is main without the process globals, it returns the exit code.
func run(
	ctx context.Context,
	args []string,
	stdout io.Writer,
	stderr io.Writer,
	lookupEnv func(string) (string, bool),
) int {

	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}

		_, _ = fmt.Fprintln(stderr, err)

		return exitUsage
	}

	cfg, err := loadConfig(opts.configPath, lookupEnv)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "loading config failed:", err)
		return exitError
	}

	logger := cfg.Logging.NewLogger(stderr).With("correlation_id", uuid.NewString())

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	finder, closeFinder, err := cfg.OpenFinder(ctx, sqlengine.WithLogger(logger))
	if err != nil {
		logger.Error("opening snapshot finder failed", "error", err.Error())
		return exitError
	}
	defer closeFinder()

	if opts.eventual {
		ctx = snapshotstore.WithEventualConsistency(ctx)
	}

	snapshots, err := history(ctx, finder, opts)
	if err != nil {
		logger.Error("querying snapshot history failed", "error", err.Error())
		return exitError
	}

	if err := writeJSON(stdout, snapshots); err != nil {
		logger.Error("writing output failed", "error", err.Error())
		return exitError
	}

	return exitOK
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options

	flags := flag.NewFlagSet("snapshot-history", flag.ContinueOnError)
	flags.SetOutput(stderr)

	flags.StringVar(&opts.configPath, "config", defaultConfigPath, "Path of the YAML config file")
	flags.StringVar(&opts.typeName, "type", "", "Type name of the entity")
	flags.StringVar(&opts.localID, "id", "", "Local id of the entity")
	flags.StringVar(&opts.fragment, "fragment", "", "Property path of a value object owned by the entity")
	flags.StringVar(&opts.voType, "vo-type", "", "Type name of the value object at -fragment")
	flags.StringVar(&opts.author, "author", "", "Only commits of this author")
	flags.StringVar(&opts.changed, "changed", "", "Only snapshots where this property changed")
	flags.StringVar(&opts.toCommit, "to-commit", "", "Only commits up to this commit id, e.g. 12.00")
	flags.IntVar(&opts.limit, "limit", snapshotstore.DefaultLimit, "Maximum number of snapshots")
	flags.IntVar(&opts.skip, "skip", 0, "Number of newest snapshots to skip")
	flags.BoolVar(&opts.aggregate, "aggregate", false, "Include value objects owned by the entity")
	flags.BoolVar(&opts.commitProps, "commit-props", false, "Load commit properties")
	flags.BoolVar(&opts.latest, "latest", false, "Only print the latest snapshot")
	flags.BoolVar(&opts.eventual, "eventual", false, "Allow reading from the replica")
	flags.DurationVar(&opts.timeout, "timeout", defaultTimeout, "Timeout of the whole query")

	if err := flags.Parse(args); err != nil {
		return options{}, err
	}

	if opts.typeName == "" || opts.localID == "" {
		flags.Usage()
		return options{}, errMissingIdentity
	}

	if opts.fragment != "" && opts.voType == "" {
		flags.Usage()
		return options{}, errMissingValueObjectType
	}

	return opts, nil
}

func loadConfig(path string, lookupEnv func(string) (string, bool)) (config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// the environment alone may be enough
		if errors.Is(err, os.ErrNotExist) && path == defaultConfigPath {
			return config.Parse(nil, lookupEnv)
		}

		return config.Config{}, errors.Join(config.ErrReadingConfigFailed, err)
	}

	return config.Parse(data, lookupEnv)
}

func (opts options) globalID() snapshotstore.GlobalID {
	entity := snapshotstore.InstanceID(opts.typeName, opts.localID)
	if opts.fragment == "" {
		return entity
	}

	return snapshotstore.ValueObjectID(opts.voType, entity, opts.fragment)
}

func (opts options) queryParams() (snapshotstore.QueryParams, error) {
	builder := snapshotstore.BuildQueryParams().
		Author(opts.author).
		ChangedProperty(opts.changed).
		Limit(opts.limit).
		Skip(opts.skip).
		WithCommitProps(opts.commitProps)

	if opts.aggregate {
		builder = builder.Aggregate()
	}

	if opts.toCommit != "" {
		commitID, err := snapshotstore.ParseCommitID(opts.toCommit)
		if err != nil {
			return snapshotstore.QueryParams{}, err
		}

		builder = builder.ToCommitID(commitID)
	}

	return builder.Build()
}

func history(
	ctx context.Context,
	finder sqlengine.SnapshotFinder,
	opts options,
) ([]snapshotstore.CdoSnapshot, error) {

	if opts.latest {
		snapshot, found, err := finder.GetLatest(ctx, opts.globalID(), opts.commitProps)
		if err != nil || !found {
			return []snapshotstore.CdoSnapshot{}, err
		}

		return []snapshotstore.CdoSnapshot{snapshot}, nil
	}

	params, err := opts.queryParams()
	if err != nil {
		return nil, err
	}

	return finder.GetStateHistory(ctx, opts.globalID(), params)
}

/***** output *****/

type commitView struct {
	ID         string            `json:"id"`
	Author     string            `json:"author"`
	Date       time.Time         `json:"date"`
	Properties map[string]string `json:"properties,omitempty"`
}

type snapshotView struct {
	GlobalID          string              `json:"globalId"`
	Version           uint64              `json:"version"`
	Type              string              `json:"type"`
	ManagedType       string              `json:"managedType"`
	Commit            commitView          `json:"commit"`
	ChangedProperties []string            `json:"changedProperties"`
	State             jsoniter.RawMessage `json:"state"`
}

func toView(snapshot snapshotstore.CdoSnapshot) snapshotView {
	var properties map[string]string
	if len(snapshot.Commit.Properties) > 0 {
		properties = make(map[string]string, len(snapshot.Commit.Properties))
		for _, property := range snapshot.Commit.Properties {
			properties[property.Name] = property.Value
		}
	}

	return snapshotView{
		GlobalID:    snapshot.GlobalID.Value(),
		Version:     snapshot.Version,
		Type:        string(snapshot.Type),
		ManagedType: snapshot.ManagedType,
		Commit: commitView{
			ID:         snapshot.Commit.ID.String(),
			Author:     snapshot.Commit.Author,
			Date:       snapshot.Commit.CommitDateInstant,
			Properties: properties,
		},
		ChangedProperties: snapshot.ChangedProperties,
		State:             jsoniter.RawMessage(snapshot.State),
	}
}

func writeJSON(w io.Writer, snapshots []snapshotstore.CdoSnapshot) error {
	views := make([]snapshotView, 0, len(snapshots))
	for _, snapshot := range snapshots {
		views = append(views, toView(snapshot))
	}

	encoder := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(views)
}
