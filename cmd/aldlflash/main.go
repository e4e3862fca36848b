/*
 * aldlflash - Command-line entry point.
 *
 * Copyright 2026, KingAi Tools Contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	getopt "github.com/pborman/getopt/v2"
	"github.com/peterh/liner"

	"github.com/kingai-tools/aldlflash/internal/aldl"
	"github.com/kingai-tools/aldlflash/internal/calconfig"
	"github.com/kingai-tools/aldlflash/internal/calibration"
	"github.com/kingai-tools/aldlflash/internal/config"
	"github.com/kingai-tools/aldlflash/internal/datalog"
	"github.com/kingai-tools/aldlflash/internal/flash"
	"github.com/kingai-tools/aldlflash/internal/image"
	"github.com/kingai-tools/aldlflash/internal/obslog"
	"github.com/kingai-tools/aldlflash/internal/session"
	"github.com/kingai-tools/aldlflash/internal/transport"
	"github.com/kingai-tools/aldlflash/internal/transport/serialport"
	"github.com/kingai-tools/aldlflash/internal/transport/usbdirect"
	"github.com/kingai-tools/aldlflash/internal/tuner"
)

var Logger *slog.Logger

func main() {
	optDevice := getopt.StringLong("device", 'd', "/dev/ttyUSB0", "Serial device path")
	optUSB := getopt.BoolLong("usb-direct", 'u', "Use the direct-USB CDC-ACM transport variant")
	optConfig := getopt.StringLong("config", 'c', "", "Session/flash/tuner config file")
	optCal := getopt.StringLong("calconfig", 0, "", "YAML calibration table descriptor file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'v', "Verbose console logging")
	optMode := getopt.StringLong("mode", 'm', "read", "Operation: read, write, tune, log")
	optBin := getopt.StringLong("bin", 'b', "", "Calibration/OS binary path")
	optWriteMode := getopt.StringLong("write-mode", 'w', "bin", "Write scope: cal, bin, prom")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var logFile *os.File
	if *optLogFile != "" {
		logFile, _ = os.Create(*optLogFile)
	}
	Logger = obslog.New(logFile, *optDebug)
	slog.SetDefault(Logger)
	Logger.Info("aldlflash started")

	cfg := session.DefaultConfig()
	tables := calibration.Tables
	if *optConfig != "" {
		applyConfigFile(*optConfig, &cfg)
	}
	if *optCal != "" {
		f, err := calconfig.Load(*optCal)
		if err != nil {
			Logger.Error("calconfig load failed", "err", err)
			os.Exit(1)
		}
		tables = f.Merge(tables)
		Logger.Info("loaded calibration tables", "osid", f.OSID, "count", len(f.Tables))
	}

	var t transport.Transport
	if *optUSB {
		t = usbdirect.New(*optDevice, cfg.Baud)
	} else {
		t = serialport.New(*optDevice, cfg.Baud)
	}

	engine := session.New(t, cfg, Logger)
	engine.Progress = func(current, total int, label string) {
		fmt.Printf("\r%s: %d/%d", label, current, total)
		if current == total {
			fmt.Println()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		Logger.Warn("interrupt received, cancelling")
		engine.Cancel()
		cancel()
	}()

	if err := engine.Connect(ctx); err != nil {
		Logger.Error("connect failed", "err", err)
		os.Exit(1)
	}
	defer engine.Disconnect()

	var err error
	switch *optMode {
	case "read":
		err = runRead(ctx, engine, *optBin)
	case "write":
		err = runWrite(ctx, engine, *optBin, *optWriteMode)
	case "tune":
		err = runTune(ctx, engine, *optBin, tables)
	case "log":
		err = runDatalog(ctx, engine)
	default:
		err = fmt.Errorf("unknown mode %q", *optMode)
	}
	if err != nil {
		Logger.Error("operation failed", "err", err)
		os.Exit(1)
	}
}

func applyConfigFile(path string, cfg *session.Config) {
	set, err := config.Load(path)
	if err != nil {
		Logger.Error("config load failed", "err", err)
		os.Exit(1)
	}
	cfg.DeviceID = byte(set.Int("DEVICE_ID", int(cfg.DeviceID)))
	cfg.BCMDeviceID = byte(set.Int("BCM_DEVICE_ID", int(cfg.BCMDeviceID)))
	cfg.Baud = set.Int("BAUD", cfg.Baud)
	cfg.MaxRetries = set.Int("MAX_RETRIES", cfg.MaxRetries)
	cfg.WriteChunkSize = set.Int("WRITE_CHUNK_SIZE", cfg.WriteChunkSize)
	cfg.HighSpeedRead = set.Bool("HIGH_SPEED_READ", cfg.HighSpeedRead)
	cfg.AutoChecksumFix = set.Bool("AUTO_CHECKSUM_FIX", cfg.AutoChecksumFix)
	if ms := set.Int("TIMEOUT_MS", -1); ms >= 0 {
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
}

func runRead(ctx context.Context, e *session.Engine, outPath string) error {
	if outPath == "" {
		return fmt.Errorf("read mode requires --bin")
	}
	orch := flash.New(e)
	img, err := orch.ReadImage(ctx)
	if err != nil {
		return err
	}
	if err := img.Save(outPath); err != nil {
		return err
	}
	Logger.Info("read complete", "osid", img.OSID(), "checksum_ok", img.VerifyChecksum())
	return nil
}

func runWrite(ctx context.Context, e *session.Engine, binPath, modeStr string) error {
	if binPath == "" {
		return fmt.Errorf("write mode requires --bin")
	}
	mode, err := parseWriteMode(modeStr)
	if err != nil {
		return err
	}
	img, err := image.Load(binPath, mode == aldl.ModeCAL)
	if err != nil {
		return err
	}
	orch := flash.New(e)
	return orch.WriteImage(ctx, img, mode, e.Config.AutoChecksumFix)
}

func parseWriteMode(s string) (aldl.WriteMode, error) {
	switch strings.ToLower(s) {
	case "cal":
		return aldl.ModeCAL, nil
	case "bin":
		return aldl.ModeBIN, nil
	case "prom":
		return aldl.ModePROM, nil
	default:
		return 0, fmt.Errorf("unknown write-mode %q (want cal, bin, or prom)", s)
	}
}

func runDatalog(ctx context.Context, e *session.Engine) error {
	path, err := datalog.DefaultLogPath(".", time.Now())
	if err != nil {
		return err
	}
	sink, err := datalog.NewCSVSink(path, datalog.DefaultParams, 10)
	if err != nil {
		return err
	}
	logger := datalog.New(e, datalog.DefaultParams)
	if err := logger.Start(ctx, sink); err != nil {
		return err
	}
	Logger.Info("logging", "path", path)
	<-ctx.Done()
	logger.Stop()
	return nil
}

// runTune opens an interactive liner-driven REPL for editing one
// calibration table's cells live over the running session, mirroring the
// reference tool's console tuning workflow in the teacher's getopt/liner
// idiom.
func runTune(ctx context.Context, e *session.Engine, binPath string, tables map[string]calibration.TableDescriptor) error {
	if binPath == "" {
		return fmt.Errorf("tune mode requires --bin (ROM baseline)")
	}
	img, err := image.Load(binPath, false)
	if err != nil {
		return err
	}

	if err := e.Silence(ctx); err != nil {
		return err
	}
	defer func() { _ = e.Unsilence(ctx) }()
	if err := e.UnlockSecurity(ctx); err != nil {
		return err
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("aldlflash live tuner — commands: list, use <table>, set <row> <col> <value>, send, quit")

	var active *tuner.Tuner
	var activeTable calibration.TableDescriptor

	for {
		input, err := line.Prompt("tune> ")
		if err != nil {
			return nil
		}
		line.AppendHistory(input)
		fields := strings.Fields(input)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit", "exit":
			return nil
		case "list":
			for name := range tables {
				fmt.Println(" ", name)
			}
		case "use":
			if len(fields) < 2 {
				fmt.Println("usage: use <table>")
				continue
			}
			t, ok := tables[fields[1]]
			if !ok {
				fmt.Println("unknown table:", fields[1])
				continue
			}
			activeTable = t
			active = tuner.New(e, t, img.Bytes())
			fmt.Printf("active table: %s (%dx%d)\n", t.Name, t.Rows, t.Cols)
		case "set":
			if active == nil {
				fmt.Println("no active table; use 'use <table>' first")
				continue
			}
			if len(fields) < 4 {
				fmt.Println("usage: set <row> <col> <value>")
				continue
			}
			row, _ := strconv.Atoi(fields[1])
			col, _ := strconv.Atoi(fields[2])
			val, _ := strconv.Atoi(fields[3])
			if err := active.SetCell(row, col, val); err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("%s[%d,%d] = %d staged\n", activeTable.Name, row, col, val)
		case "send":
			if active == nil {
				fmt.Println("no active table")
				continue
			}
			if err := active.SendUpdates(ctx); err != nil {
				fmt.Println("send failed:", err)
				continue
			}
			fmt.Println("sent")
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}
