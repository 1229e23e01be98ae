package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/repowatch/cli"
	"github.com/grovetools/repowatch/config"
	"github.com/grovetools/repowatch/errors"
	"github.com/grovetools/repowatch/logging"
	"github.com/grovetools/repowatch/pkg/paths"
	"github.com/grovetools/repowatch/util/pathutil"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

var (
	logErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5D62")).Bold(true)
	logWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA066"))
	logInfoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7E9CD8"))
	logMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#727169"))
)

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs [component]",
		Short: "Display repowatch log files",
		Long: `Print the log file of a repowatch component (watch, run, sync, config).
By default the newest log file of the watch component is shown. JSON log
lines are rendered as text unless --json is given.`,
		Example: `# Follow the watch log
repowatch logs -f

# Last 50 lines of the run log as JSON lines
repowatch logs run --tail 50 --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLogs,
	}
	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	cmd.Flags().IntP("tail", "n", -1, "Number of lines to show from the end of the log (default: all)")
	cmd.Flags().String("file", "", "Read this log file instead of looking one up")
	return cmd
}

func runLogs(cmd *cobra.Command, args []string) error {
	component := "watch"
	if len(args) > 0 {
		component = args[0]
	}
	follow, _ := cmd.Flags().GetBool("follow")
	tailLines, _ := cmd.Flags().GetInt("tail")
	jsonOutput := cli.GetOptions(cmd).JSONOutput

	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		var err error
		if path, err = findLogFile(component, follow); err != nil {
			return err
		}
	}
	cli.GetLogger(cmd, "logs").WithField("log_file", path).Debug("Reading log file")

	offset := int64(0)
	if tailLines >= 0 {
		var err error
		if offset, err = tailOffset(path, tailLines); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:    follow,
		ReOpen:    follow,
		MustExist: !follow,
		Location:  &tail.SeekInfo{Offset: offset, Whence: io.SeekStart},
		Logger:    stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "cannot read log file").WithDetail("path", path)
	}
	defer t.Cleanup()

	if follow {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigs)
		go func() {
			<-sigs
			_ = t.Stop()
		}()
	}

	out := cmd.OutOrStdout()
	for line := range t.Lines {
		if line.Err != nil {
			continue
		}
		if jsonOutput {
			printLogJSON(out, path, line.Text)
		} else {
			printLogText(out, line.Text)
		}
	}
	return nil
}

// findLogFile returns the configured log file, today's file for component,
// or the newest file for component in the logs directory. When following,
// today's file is returned even if it does not exist yet.
func findLogFile(component string, follow bool) (string, error) {
	if cfg, err := config.LoadDefault(); err == nil {
		if logCfg, err := logging.FromConfig(cfg); err == nil && logCfg.File.Enabled && logCfg.File.Path != "" {
			return pathutil.Expand(logCfg.File.Path)
		}
	}

	today := logging.DefaultLogPath(component, time.Now())
	if today == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "cannot determine the logs directory")
	}
	if _, err := os.Stat(today); err == nil || follow {
		return today, nil
	}
	return findLatestLogFile(paths.LogsDir(), component+"-")
}

// findLatestLogFile finds the most recently modified non-empty file in dir
// whose name starts with prefix.
func findLatestLogFile(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInvalidInput, "could not read log directory").WithDetail("path", dir)
	}

	var latest os.FileInfo
	var latestPath string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() == 0 {
			continue
		}
		if latest == nil || info.ModTime().After(latest.ModTime()) {
			latest = info
			latestPath = filepath.Join(dir, entry.Name())
		}
	}
	if latest == nil {
		return "", errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("no %s*.log files found in %s", prefix, dir))
	}
	return latestPath, nil
}

// tailOffset returns the byte offset at which the last n lines of path
// start.
func tailOffset(path string, n int) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	end := len(data)
	if end > 0 && data[end-1] == '\n' {
		end--
	}
	if n == 0 {
		return int64(len(data)), nil
	}
	for i := 0; i < n; i++ {
		idx := bytes.LastIndexByte(data[:end], '\n')
		if idx < 0 {
			return 0, nil
		}
		end = idx
	}
	return int64(end + 1), nil
}

// printLogJSON prints a log line as JSON, enriched with the file it came
// from. Text lines are wrapped.
func printLogJSON(out io.Writer, path, line string) {
	var logMap map[string]interface{}
	if err := json.Unmarshal([]byte(line), &logMap); err != nil {
		logMap = map[string]interface{}{"raw_line": line}
	}
	logMap["file"] = filepath.Base(path)
	jsonData, _ := json.Marshal(logMap)
	fmt.Fprintln(out, string(jsonData))
}

// printLogText prints text lines as they are and renders JSON lines from
// the json file format.
func printLogText(out io.Writer, line string) {
	var logMap map[string]interface{}
	if err := json.Unmarshal([]byte(line), &logMap); err != nil {
		fmt.Fprintln(out, line)
		return
	}

	ts, _ := logMap["time"].(string)
	level, _ := logMap["level"].(string)
	msg, _ := logMap["msg"].(string)
	component, _ := logMap["component"].(string)

	timeStr := ts
	if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		timeStr = parsed.Format("15:04:05")
	}

	var levelStyle lipgloss.Style
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		levelStyle = logErrorStyle
	case "warning":
		levelStyle = logWarnStyle
	case "info":
		levelStyle = logInfoStyle
	default:
		levelStyle = logMutedStyle
	}

	var keys []string
	for k := range logMap {
		switch k {
		case "time", "level", "msg", "component":
		default:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, fmt.Sprintf("%s=%v", logMutedStyle.Render(k), logMap[k]))
	}

	fmt.Fprintf(out, "%s %s [%s] %s %s\n",
		timeStr,
		levelStyle.Render(strings.ToUpper(level)),
		logMutedStyle.Render(component),
		msg,
		strings.Join(fields, " "),
	)
}
