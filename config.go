// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"

	"github.com/rustchain-network/rustsyncd/internal/version"
)

const (
	defaultConfigFilename  = "rustsyncd.conf"
	defaultDataDirname     = "data"
	defaultLogDirname      = "logs"
	defaultLogFilename     = "rustsyncd.log"
	defaultLogLevel        = "info"
	defaultDbType          = "leveldb"
	defaultPeerTimeout     = time.Second * 5
	defaultTickInterval    = time.Second * 30
	defaultStaleTTL        = time.Minute * 5
	defaultMaxFetchSpan    = 500
	defaultFanOut          = 8
	defaultMaxForkDepth    = 100
	defaultReconcileMargin = 0
)

var (
	defaultHomeDir    = btcutil.AppDataDir("rustsyncd", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
	knownDbTypes      = []string{"leveldb", "pebbledb"}
)

// config defines the configuration options for rustsyncd.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion     bool          `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile      string        `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir         string        `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir          string        `long:"logdir" description:"Directory to log output"`
	Listeners       []string      `long:"listen" description:"Add an interface/port to listen for gossip connections (default all interfaces port: 7445, simnet: 17445)"`
	ExternalAddr    string        `long:"externaladdr" description:"Address other nodes should use to reach this node for announcement relay and peer exchange"`
	DisableListen   bool          `long:"nolisten" description:"Disable the gossip server -- the node still synchronizes from its peers"`
	ConnectPeers    []string      `long:"connect" description:"Bootstrap peer to seed the registry with at startup"`
	DbType          string        `long:"dbtype" description:"Database backend to use for the block store"`
	Proxy           string        `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser       string        `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass       string        `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	SimNet          bool          `long:"simnet" description:"Use the simulation test network"`
	PeerTimeout     time.Duration `long:"peertimeout" description:"Deadline applied to every remote request.  Valid time units are {s, m, h}.  Minimum 1 second"`
	TickInterval    time.Duration `long:"tickinterval" description:"How often a synchronization round is started.  Valid time units are {s, m, h}.  Minimum 1 second"`
	StaleTTL        time.Duration `long:"stalettl" description:"How long a known peer may go without contact before it is forgotten.  Valid time units are {s, m, h}.  Minimum 1 second"`
	MaxFetchSpan    int64         `long:"maxfetchspan" description:"Maximum number of blocks requested in a single range fetch"`
	FanOut          int           `long:"fanout" description:"Number of active peers contacted each synchronization round"`
	MaxForkDepth    int           `long:"maxforkdepth" description:"Deepest fork the node will reorganize across"`
	ReconcileMargin int64         `long:"reconcilemargin" description:"Number of blocks a competing fork must lead by before a reorganization is attempted"`
	Profile         string        `long:"profile" description:"Enable HTTP profiling on given port -- NOTE port must be between 1024 and 65536"`
	DebugLevel      string        `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace":
		fallthrough
	case "debug":
		fallthrough
	case "info":
		fallthrough
	case "warn":
		fallthrough
	case "error":
		fallthrough
	case "critical":
		return true
	}
	return false
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	// Convert the subsystemLoggers map keys to a slice.
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsystems for stable display.
	sort.Strings(subsystems)
	return subsystems
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !validLogLevel(debugLevel) {
			str := "The specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		setLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "The specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := subsystemLoggers[subsysID]; !exists {
			str := "The specified subsystem [%v] is invalid -- " +
				"supported subsytems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			str := "The specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// validDbType returns whether or not dbType is a supported database type.
func validDbType(dbType string) bool {
	for _, knownType := range knownDbTypes {
		if dbType == knownType {
			return true
		}
	}

	return false
}

// normalizeAddress returns addr with the passed default port appended if
// there is not already a port specified.
func normalizeAddress(addr, defaultPort string) string {
	_, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.JoinHostPort(addr, defaultPort)
	}
	return addr
}

// removeDuplicateAddresses returns a new slice with all duplicate entries in
// addrs removed.
func removeDuplicateAddresses(addrs []string) []string {
	result := make([]string, 0, len(addrs))
	seen := map[string]struct{}{}
	for _, val := range addrs {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = struct{}{}
		}
	}
	return result
}

// normalizeAddresses returns a new slice with all the passed addresses
// normalized with the given default port and all duplicates removed.
func normalizeAddresses(addrs []string, defaultPort string) []string {
	for i, addr := range addrs {
		addrs[i] = normalizeAddress(addr, defaultPort)
	}

	return removeDuplicateAddresses(addrs)
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in rustsyncd functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options.  Command line options always take
// precedence.
func loadConfig() (*config, []string, error) {
	// Default config.
	cfg := config{
		ConfigFile:      defaultConfigFile,
		DataDir:         defaultDataDir,
		LogDir:          defaultLogDir,
		DbType:          defaultDbType,
		DebugLevel:      defaultLogLevel,
		PeerTimeout:     defaultPeerTimeout,
		TickInterval:    defaultTickInterval,
		StaleTTL:        defaultStaleTTL,
		MaxFetchSpan:    defaultMaxFetchSpan,
		FanOut:          defaultFanOut,
		MaxForkDepth:    defaultMaxForkDepth,
		ReconcileMargin: defaultReconcileMargin,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			preParser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version.String())
		os.Exit(0)
	}

	// Load additional config from file.
	parser := flags.NewParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintln(os.Stderr, err)
			parser.WriteHelp(os.Stderr)
			return nil, nil, err
		}
		configFileError := err
		if preCfg.ConfigFile != defaultConfigFile {
			fmt.Fprintln(os.Stderr, configFileError)
			return nil, nil, configFileError
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// Choose the active network params based on the simnet flag.
	if cfg.SimNet {
		activeNetParams = &simNetParams
	}

	funcName := "loadConfig"

	// Append the network type to the data and log directories so they are
	// "namespaced" per network.  In addition to the block database, there
	// are other pieces of data that are saved to disk such as the known
	// peer registry.  All data is specific to a network, so namespacing
	// the directories means each individual piece of serialized data does
	// not have to worry about changing names per network and such.
	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.DataDir = filepath.Join(cfg.DataDir, netName(activeNetParams))
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.LogDir = filepath.Join(cfg.LogDir, netName(activeNetParams))

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// Initialize log rotation.  After log rotation has been initialized,
	// the logger variables may be used.
	initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("%s: %v", funcName, err.Error())
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Validate database type.
	if !validDbType(cfg.DbType) {
		str := "%s: The specified database type [%v] is invalid -- " +
			"supported types %v"
		err := fmt.Errorf(str, funcName, cfg.DbType, knownDbTypes)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Validate profile port number.
	if cfg.Profile != "" {
		profilePort, err := strconv.Atoi(cfg.Profile)
		if err != nil || profilePort < 1024 || profilePort > 65535 {
			str := "%s: The profile port must be between 1024 and 65535"
			err := fmt.Errorf(str, funcName)
			fmt.Fprintln(os.Stderr, err)
			parser.WriteHelp(os.Stderr)
			return nil, nil, err
		}
	}

	// Don't allow timeouts or intervals that are too short.
	for _, check := range []struct {
		option string
		value  time.Duration
	}{
		{"peertimeout", cfg.PeerTimeout},
		{"tickinterval", cfg.TickInterval},
		{"stalettl", cfg.StaleTTL},
	} {
		if check.value < time.Second {
			str := "%s: The %s option may not be less than 1s -- parsed [%v]"
			err := fmt.Errorf(str, funcName, check.option, check.value)
			fmt.Fprintln(os.Stderr, err)
			parser.WriteHelp(os.Stderr)
			return nil, nil, err
		}
	}

	// The synchronization knobs must be positive.
	if cfg.MaxFetchSpan < 1 {
		str := "%s: The maxfetchspan option must be at least 1 -- parsed [%v]"
		err := fmt.Errorf(str, funcName, cfg.MaxFetchSpan)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}
	if cfg.FanOut < 1 {
		str := "%s: The fanout option must be at least 1 -- parsed [%v]"
		err := fmt.Errorf(str, funcName, cfg.FanOut)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}
	if cfg.MaxForkDepth < 1 {
		str := "%s: The maxforkdepth option must be at least 1 -- parsed [%v]"
		err := fmt.Errorf(str, funcName, cfg.MaxForkDepth)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}
	if cfg.ReconcileMargin < 0 {
		str := "%s: The reconcilemargin option may not be negative -- parsed [%v]"
		err := fmt.Errorf(str, funcName, cfg.ReconcileMargin)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// Add the default listen address when none is specified.  The gossip
	// server listens on all interfaces by default.
	if len(cfg.Listeners) == 0 {
		cfg.Listeners = []string{
			net.JoinHostPort("", activeNetParams.gossipPort),
		}
	}

	// Add default port to all listener and bootstrap addresses if needed
	// and remove duplicate addresses.
	cfg.Listeners = normalizeAddresses(cfg.Listeners,
		activeNetParams.gossipPort)
	cfg.ConnectPeers = normalizeAddresses(cfg.ConnectPeers,
		activeNetParams.gossipPort)
	if cfg.ExternalAddr != "" {
		cfg.ExternalAddr = normalizeAddress(cfg.ExternalAddr,
			activeNetParams.gossipPort)
	}

	// A node with neither a gossip server nor bootstrap peers can never
	// exchange blocks with anyone.
	if cfg.DisableListen && len(cfg.ConnectPeers) == 0 {
		str := "%s: the --nolisten option requires at least one " +
			"--connect peer"
		err := fmt.Errorf(str, funcName)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Warn about missing config file only after all other configuration is
	// done.  This prevents the warning on help messages and invalid
	// options.  Note this should go directly before the return.
	if !fileExists(preCfg.ConfigFile) && preCfg.ConfigFile == defaultConfigFile {
		rsydLog.Debugf("Config file %s not found, using defaults",
			preCfg.ConfigFile)
	}

	return &cfg, remainingArgs, nil
}
