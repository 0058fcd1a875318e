// This file is part of Spipanel.
//
// Spipanel is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Spipanel is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Spipanel.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/bradleyjkemp/memviz"
	"golang.org/x/term"

	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/digest"
	"github.com/jetsetilly/spipanel/display"
	"github.com/jetsetilly/spipanel/easyterm"
	"github.com/jetsetilly/spipanel/framestats"
	"github.com/jetsetilly/spipanel/gui"
	"github.com/jetsetilly/spipanel/gui/sdlpanel"
	"github.com/jetsetilly/spipanel/gui/termpanel"
	"github.com/jetsetilly/spipanel/imagesource"
	"github.com/jetsetilly/spipanel/logger"
	"github.com/jetsetilly/spipanel/modalflag"
	"github.com/jetsetilly/spipanel/panel"
	"github.com/jetsetilly/spipanel/paths"
	"github.com/jetsetilly/spipanel/performance"
	"github.com/jetsetilly/spipanel/playmode"
	"github.com/jetsetilly/spipanel/prefs"
	"github.com/jetsetilly/spipanel/simpanel"
	"github.com/jetsetilly/spipanel/statsview"
	"github.com/jetsetilly/spipanel/testcard"
	"github.com/jetsetilly/spipanel/transport"
	"github.com/jetsetilly/spipanel/transport/spidev"
	"github.com/jetsetilly/spipanel/version"
)

type stateReq = string

const (
	// main thread should end as soon as possible.
	//
	// takes optional int argument, indicating the status code.
	reqQuit stateReq = "QUIT"

	// reset interrupt signal handling. used when an alternative handler is
	// more appropriate. the playmode package provides its own handler so that
	// the pipeline can be closed cleanly.
	//
	// takes no arguments.
	reqNoIntSig stateReq = "NOINTSIG"
)

// exit values
const (
	exitArgs  = 10
	exitError = 20
	exitFatal = 30
)

type stateRequest struct {
	req  stateReq
	args interface{}
}

// communication between the main() function and the launch() function. this is
// required because many gui solutions (notably SDL) require window event
// handling (including creation) to occur on the main thread.
type mainSync struct {
	state   chan stateRequest
	creator chan func() (gui.GuiCreator, error)

	// the result of creator will be returned on either of these two channels.
	creation      chan gui.GuiCreator
	creationError chan error
}

// #mainthread
func main() {
	sync := &mainSync{
		state:         make(chan stateRequest),
		creator:       make(chan func() (gui.GuiCreator, error)),
		creation:      make(chan gui.GuiCreator),
		creationError: make(chan error),
	}

	// the value to use with os.Exit(). can be changed with reqQuit
	// stateRequest
	exitVal := 0

	// #ctrlc default handler. can be turned off with reqNoIntSig request
	intChan := make(chan os.Signal, 1)
	signal.Notify(intChan, os.Interrupt)

	// launch program as a go routine. further communication is through the
	// mainSync instance
	go launch(sync)

	// loop until done is true. every iteration of the loop we listen for:
	//
	//  1. interrupt signals
	//  2. new gui creation functions
	//  3. state requests
	//  4. anything in the Service() function of the most recently created GUI
	//
	done := false
	var g gui.GuiCreator
	for !done {
		select {
		case <-intChan:
			fmt.Println("\r")
			done = true

		case creator := <-sync.creator:
			var err error

			// destroy existing gui
			if g != nil {
				g.Destroy(os.Stderr)
			}

			g, err = creator()
			if err != nil {
				sync.creationError <- err

				// the creator returns a nil pointer of a concrete type, which
				// is not the same as a nil interface
				g = nil
			} else {
				sync.creation <- g
			}

		case state := <-sync.state:
			switch state.req {
			case reqQuit:
				done = true
				if g != nil {
					g.Destroy(os.Stderr)
				}

				if state.args != nil {
					if v, ok := state.args.(int); ok {
						exitVal = v
					} else {
						panic(fmt.Sprintf("cannot convert %s arguments into int", reqQuit))
					}
				}

			case reqNoIntSig:
				signal.Reset(os.Interrupt)
				if state.args != nil {
					panic(fmt.Sprintf("%s does not accept any arguments", reqNoIntSig))
				}
			}

		default:
			if g != nil {
				g.Service()
			} else {
				time.Sleep(time.Millisecond)
			}
		}
	}

	fmt.Print("\r")
	os.Exit(exitVal)
}

// launch is called from main() as a goroutine. uses mainSync instance to
// indicate gui creation and to quit.
func launch(sync *mainSync) {
	md := &modalflag.Modes{Output: os.Stdout}
	md.NewArgs(os.Args[1:])
	md.NewMode()
	md.AddSubModes("RUN", "DIGEST", "PERFORMANCE", "MEMVIZ", "VERSION")

	p, err := md.Parse()
	switch p {
	case modalflag.ParseHelp:
		sync.state <- stateRequest{req: reqQuit}
		return

	case modalflag.ParseError:
		fmt.Printf("* error: %v\n", err)
		sync.state <- stateRequest{req: reqQuit, args: exitArgs}
		return
	}

	switch md.Mode() {
	case "RUN":
		err = run(md, sync)

	case "DIGEST":
		err = digestMode(md)

	case "PERFORMANCE":
		err = perform(md)

	case "MEMVIZ":
		err = memvizMode(md)

	case "VERSION":
		fmt.Println(version.Version())
	}

	if err != nil {
		fmt.Printf("* error in %s mode: %s\n", md.String(), err)
		if display.IsFatal(err) {
			fmt.Println("* recent log:")
			logger.Tail(os.Stdout, 10)
			sync.state <- stateRequest{req: reqQuit, args: exitFatal}
		} else {
			sync.state <- stateRequest{req: reqQuit, args: exitError}
		}
		return
	}

	sync.state <- stateRequest{req: reqQuit}
}

// the panel and the pipeline driving it
type panelSetup struct {
	disp *display.Pipeline

	// nil if the panel is not simulated
	sim *simpanel.Panel

	// nil if the panel is simulated
	dev *spidev.Device
}

// open the pipeline on a simulated panel or on the SPI bus
func openPanel(geom panel.Geometry, useSPI bool, spiPort string, dispPrefs *display.Preferences) (*panelSetup, error) {
	ps := &panelSetup{}

	var cfg display.Config
	if dispPrefs != nil {
		cfg = dispPrefs.Config(geom)
	} else {
		cfg = display.DefaultConfig(geom)
	}

	var bus transport.Bus
	var hook transport.PreTransfer
	col := display.Collaborators{Preferences: dispPrefs}

	if useSPI {
		spiCfg := spidev.DefaultConfig()
		spiCfg.Port = spiPort

		var err error
		ps.dev, err = spidev.Open(spiCfg)
		if err != nil {
			return nil, err
		}

		if err := ps.dev.HardReset(); err != nil {
			_ = ps.dev.Close()
			return nil, err
		}

		bus = ps.dev
		hook = ps.dev.Hook
		col.Backlight = ps.dev
		col.Power = ps.dev
	} else {
		ps.sim = simpanel.NewPanel(geom)
		bus = ps.sim
		hook = ps.sim.Hook
		col.Backlight = ps.sim
		col.Power = ps.sim
	}

	var err error
	ps.disp, err = display.NewPipeline(bus, hook, cfg, col)
	if err != nil {
		if ps.dev != nil {
			_ = ps.dev.Close()
		}
		return nil, err
	}

	logger.Logf(logger.Allow, "spipanel", "%s", cfg)

	return ps, nil
}

func (ps *panelSetup) close() error {
	err := ps.disp.Close()
	if ps.dev != nil {
		if derr := ps.dev.Close(); err == nil {
			err = derr
		}
	}
	return err
}

func run(md *modalflag.Modes, sync *mainSync) (rerr error) {
	md.NewMode()
	md.AdditionalHelp("the optional argument is an image file to show in place of the test card")

	geom := md.AddGeometry("panel", panel.ILI9341, "panel dimensions")
	useSPI := md.AddBool("spi", false, "drive a panel on the SPI bus rather than a simulated panel")
	spiPort := md.AddString("port", "", "SPI port name. empty for the first available port")
	prefsFile := md.AddString("prefsfile", "", "preferences file. empty for the default file")
	prefsOverride := md.AddString("prefs", "", "preferences for this session. key::value pairs separated by semi-colons")
	guiType := md.AddString("gui", "SDL", "mirror of simulated panel: SDL, TERM, NONE")
	scale := md.AddInt("scale", 2, "scaling of SDL window")
	fit := md.AddBool("fit", true, "scale source to fit panel")
	fpsCap := md.AddBool("fpscap", true, "cap fps to source refresh rate")
	watch := md.AddBool("watch", false, "reload image file when it changes")
	cycle := md.AddBool("cycle", false, "cycle test card palette")
	caption := md.AddBool("caption", false, "show frame number on test card")
	stats := md.AddBool("stats", false, "record frame statistics to database")
	statsServer := md.AddBool("statsview", false, fmt.Sprintf("run stats server on %s", statsview.Address))
	log := md.AddBool("log", false, "echo debugging log to stdout")

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	// set debugging log echo
	if *log {
		logger.SetEcho(os.Stdout, true)
	} else {
		logger.SetEcho(nil, false)
	}

	if len(md.RemainingArgs()) > 1 {
		return fmt.Errorf("too many arguments for %s mode", md)
	}

	logger.Log(logger.Allow, "spipanel", version.Version())

	if *prefsOverride != "" {
		prefs.PushCommandLineStack(*prefsOverride)
		defer func() {
			if unused := prefs.PopCommandLineStack(); unused != "" {
				logger.Logf(logger.Allow, "spipanel", "unused preferences: %s", unused)
			}
		}()
	}

	dispPrefs, err := display.NewPreferences(*prefsFile)
	if err != nil {
		return err
	}

	ps, err := openPanel(*geom, *useSPI, *spiPort, dispPrefs)
	if err != nil {
		return err
	}
	defer func() {
		if err := ps.close(); rerr == nil {
			rerr = err
		}
	}()

	// the frame source
	var src playmode.Source
	if len(md.RemainingArgs()) == 1 {
		still, err := imagesource.NewStill(md.GetArg(0), *watch)
		if err != nil {
			_ = ps.disp.ShowError(display.StorageError)
			return err
		}
		defer still.Close()
		src = still
	} else {
		card := testcard.New(geom.Width/2, geom.Height/2)
		card.SetCycling(*cycle)
		card.SetCaption(*caption)
		src = card
	}

	events := make(chan gui.Event, 10)

	// create gui
	guiName := strings.ToUpper(*guiType)
	switch guiName {
	case "SDL", "TERM":
		if ps.sim == nil {
			logger.Logf(logger.Allow, "spipanel", "no %s mirror for a panel on the SPI bus", guiName)
			guiName = "NONE"
			break
		}

		sync.creator <- func() (gui.GuiCreator, error) {
			if guiName == "SDL" {
				return sdlpanel.NewWindow(ps.sim, *scale, events)
			}
			return termpanel.NewTerminal(ps.sim, events)
		}

		select {
		case <-sync.creation:
		case err := <-sync.creationError:
			return err
		}

	case "NONE":
	default:
		return fmt.Errorf("unknown gui type %q", *guiType)
	}

	// keyboard input from the terminal when the terminal isn't otherwise in
	// use
	if guiName != "TERM" && term.IsTerminal(int(os.Stdin.Fd())) {
		et, err := easyterm.Open("")
		if err != nil {
			logger.Log(logger.Allow, "spipanel", err)
		} else {
			defer et.Close()
			et.Listen(events)
		}
	}

	if *statsServer {
		statsview.Launch(os.Stdout)
	}

	cfg := playmode.DefaultConfig()
	cfg.Diff = dispPrefs.Config(*geom).Diff
	cfg.Timeout = dispPrefs.Config(*geom).Timeout
	cfg.Fit = *fit
	cfg.Uncapped = !*fpsCap

	if *stats {
		pth, err := paths.ResourcePath("", framestats.DefaultFile)
		if err != nil {
			return err
		}
		rec, err := framestats.NewRecorder(framestats.DefaultConfig(pth))
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Flush(); err == nil {
				if s, err := rec.Summary(rec.Session()); err == nil {
					fmt.Println(s)
				}
			}
			if err := rec.Close(); err != nil {
				logger.Log(logger.Allow, "spipanel", err)
			}
		}()
		cfg.Recorder = rec
	}

	// turn off fallback ctrl-c handling. this so that playmode can close the
	// pipeline gracefully
	sync.state <- stateRequest{req: reqNoIntSig}

	err = playmode.Play(src, ps.disp, events, cfg)
	if err != nil {
		if !display.IsFatal(err) {
			_ = ps.disp.ShowError(display.GeneralError)
		}
		return err
	}

	return nil
}

func digestMode(md *modalflag.Modes) error {
	md.NewMode()
	md.AdditionalHelp("the optional argument is an image file to digest in place of the test card")

	geom := md.AddGeometry("panel", panel.ILI9341, "panel dimensions")
	frames := md.AddInt("frames", 60, "number of frames to digest")
	fit := md.AddBool("fit", true, "scale source to fit panel")
	cycle := md.AddBool("cycle", false, "cycle test card palette")
	caption := md.AddBool("caption", false, "show frame number on test card")
	every := md.AddBool("every", false, "print the digest after every frame")

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	if *frames < 1 {
		return fmt.Errorf("at least one frame must be digested")
	}
	if len(md.RemainingArgs()) > 1 {
		return fmt.Errorf("too many arguments for %s mode", md)
	}

	ps, err := openPanel(*geom, false, "", nil)
	if err != nil {
		return err
	}
	defer ps.close()

	var src playmode.Source
	if len(md.RemainingArgs()) == 1 {
		still, err := imagesource.NewStill(md.GetArg(0), false)
		if err != nil {
			return err
		}
		defer still.Close()
		src = still
	} else {
		card := testcard.New(geom.Width/2, geom.Height/2)
		card.SetCycling(*cycle)
		card.SetCaption(*caption)
		src = card
	}

	dig := digest.NewPanel(ps.sim)

	cfg := playmode.DefaultConfig()
	cfg.Fit = *fit
	cfg.Uncapped = true
	cfg.Sync = true
	cfg.Frames = *frames
	cfg.Report = 0
	cfg.OnFrame = func(n int) {
		dig.Frame()
		if *every {
			fmt.Printf("%d %s\n", n, dig.Hash())
		}
	}

	err = playmode.Play(src, ps.disp, nil, cfg)
	if err != nil {
		return err
	}

	fmt.Println(dig.Hash())

	return nil
}

func perform(md *modalflag.Modes) error {
	md.NewMode()

	geom := md.AddGeometry("panel", panel.ILI9341, "panel dimensions")
	duration := md.AddDuration("duration", 10*time.Second, "run duration")
	latency := md.AddDuration("latency", 0, "simulated bus time for each byte")
	cycle := md.AddBool("cycle", true, "cycle test card palette")
	profile := md.AddString("profile", "none", "run through profiler: CPU, MEM, TRACE, ALL (comma sep)")
	statsServer := md.AddBool("statsview", false, fmt.Sprintf("run stats server on %s", statsview.Address))
	log := md.AddBool("log", false, "echo debugging log to stdout")

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	if *log {
		logger.SetEcho(os.Stdout, true)
	} else {
		logger.SetEcho(nil, false)
	}

	if len(md.RemainingArgs()) > 0 {
		return fmt.Errorf("too many arguments for %s mode", md)
	}

	prf, err := performance.ParseProfileString(*profile)
	if err != nil {
		return err
	}

	if *statsServer {
		statsview.Launch(os.Stdout)
	}

	cfg := performance.DefaultCheckConfig(*geom)
	cfg.Duration = *duration
	cfg.Latency = *latency
	cfg.Cycling = *cycle

	return performance.Check(os.Stdout, prf, cfg)
}

// MemvizError is the pattern for errors in MEMVIZ mode.
const MemvizError = "memviz: %v"

func memvizMode(md *modalflag.Modes) error {
	md.NewMode()
	md.AdditionalHelp("writes a graphviz description of the display pipeline")

	geom := md.AddGeometry("panel", panel.ILI9341, "panel dimensions")
	output := md.AddString("o", "", "output file. use - for stdout. empty for a unique name")

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	ps, err := openPanel(*geom, false, "", nil)
	if err != nil {
		return curated.Errorf(MemvizError, err)
	}
	defer ps.close()

	// present one frame so that the pipeline is in a typical state
	card := testcard.New(geom.Width/2, geom.Height/2)
	cfg := playmode.DefaultConfig()
	cfg.Uncapped = true
	cfg.Sync = true
	cfg.Frames = 1
	cfg.Report = 0
	if err := playmode.Play(card, ps.disp, nil, cfg); err != nil {
		return curated.Errorf(MemvizError, err)
	}

	if *output == "" {
		*output = fmt.Sprintf("%s.dot", paths.UniqueFilename("memviz", "pipeline"))
	}

	var w io.Writer = os.Stdout
	if *output != "-" {
		f, err := os.Create(*output)
		if err != nil {
			return curated.Errorf(MemvizError, err)
		}
		defer f.Close()
		w = f
	}

	memviz.Map(w, ps.disp)

	if *output != "-" {
		fmt.Printf("! graph written to %s\n", *output)
	}

	return nil
}
