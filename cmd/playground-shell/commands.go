package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/bbernhard/mnist-playground/preprocess"
	"github.com/bbernhard/mnist-playground/session"
	"github.com/bbernhard/mnist-playground/sketch"
	"github.com/disintegration/imaging"
)

func (ctx *padCtxt) commands() []*ishell.Cmd {
	return []*ishell.Cmd{
		ctx.beginCmd(),
		ctx.moveCmd(),
		ctx.endCmd(),
		ctx.lineCmd(),
		ctx.clearCmd(),
		ctx.showCmd(),
		ctx.vectorCmd(),
		ctx.saveCmd(),
		ctx.runCmd(),
		ctx.historyCmd(),
		ctx.undoCmd(),
		ctx.statusCmd(),
	}
}

func (ctx *padCtxt) beginCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name: "begin",
		Help: "start a stroke: begin <x> <y>",
		Func: func(c *ishell.Context) {
			p, err := parsePoint(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			ctx.begin(p)
		},
	}
}

func (ctx *padCtxt) moveCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name: "move",
		Help: "extend the current stroke: move <x> <y>",
		Func: func(c *ishell.Context) {
			p, err := parsePoint(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if !ctx.pad.Renderer().Drawing() {
				c.Err(errors.New("no stroke in progress, use begin first"))
				return
			}
			ctx.pad.ExtendStroke(p)
		},
	}
}

func (ctx *padCtxt) endCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name: "end",
		Help: "finish the current stroke",
		Func: func(c *ishell.Context) {
			ctx.pad.EndStroke()
		},
	}
}

func (ctx *padCtxt) lineCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name: "line",
		Help: "draw a whole stroke: line <x0> <y0> <x1> <y1> [<x> <y>]...",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 4 || len(c.Args)%2 != 0 {
				c.Err(errors.New("line needs at least two points"))
				return
			}
			coords, err := parseCoords(c.Args, len(c.Args))
			if err != nil {
				c.Err(err)
				return
			}
			ctx.begin(sketch.Point{X: coords[0], Y: coords[1]})
			for i := 2; i < len(coords); i += 2 {
				ctx.pad.ExtendStroke(sketch.Point{X: coords[i], Y: coords[i+1]})
			}
			ctx.pad.EndStroke()
		},
	}
}

func (ctx *padCtxt) clearCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name: "clear",
		Help: "wipe the pad",
		Func: func(c *ishell.Context) {
			ctx.clear()
		},
	}
}

func (ctx *padCtxt) showCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name: "show",
		Help: "print the normalized 28x28 digit",
		Func: func(c *ishell.Context) {
			c.Println(ctx.pad.Normalize().ASCII())
		},
	}
}

func (ctx *padCtxt) vectorCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name: "vector",
		Help: "print the 784 model inputs",
		Func: func(c *ishell.Context) {
			c.Println(formatVector(ctx.pad.Normalize()))
		},
	}
}

func (ctx *padCtxt) saveCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name: "save",
		Help: "save the pad or the normalized digit: save <file> [raw]",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(errors.New("missing file name"))
				return
			}
			surface := ctx.pad.Renderer().Surface()
			img := preprocess.Render(surface)
			if len(c.Args) > 1 && c.Args[1] == "raw" {
				img = surface
			}
			if err := imaging.Save(img, c.Args[0]); err != nil {
				c.Err(err)
				return
			}
			c.Println("saved", c.Args[0])
		},
	}
}

func (ctx *padCtxt) runCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name: "run",
		Help: "run the model on the drawing now",
		Func: func(c *ishell.Context) {
			if ctx.snapshot().ModelStatus != session.ModelReady {
				c.Err(errors.New("no model loaded, start with -model"))
				return
			}
			ctx.pad.RunNow()
		},
	}
}

func (ctx *padCtxt) historyCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name: "history",
		Help: "list earlier predictions, newest first",
		Func: func(c *ishell.Context) {
			s := ctx.snapshot()
			if len(s.Predictions) == 0 {
				c.Println("no predictions yet")
				return
			}
			c.Println(session.FormatHistory(s.Predictions))
		},
	}
}

func (ctx *padCtxt) undoCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name: "undo",
		Help: "drop the latest prediction, or all of them: undo [all]",
		Func: func(c *ishell.Context) {
			if len(c.Args) > 0 && c.Args[0] == "all" {
				ctx.dispatch(session.ResetPredictions{})
				return
			}
			ctx.dispatch(session.UndoPrediction{})
		},
	}
}

func (ctx *padCtxt) statusCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name: "status",
		Help: "show model and pad state",
		Func: func(c *ishell.Context) {
			c.Println(formatStatus(ctx.snapshot(), ctx.pad.AutoRunPending()))
		},
	}
}

func formatVector(v preprocess.Vector) string {
	var b strings.Builder
	for y := 0; y < preprocess.Side; y++ {
		for x := 0; x < preprocess.Side; x++ {
			if x > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%.2f", v.At(x, y))
		}
		if y < preprocess.Side-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func formatStatus(s session.State, autoRunPending bool) string {
	model := s.Model
	if model == "" {
		model = "none"
	}
	lines := []string{
		fmt.Sprintf("model: %s (%s)", model, s.ModelStatus),
		fmt.Sprintf("drawn: %t, auto-run pending: %t", s.Drawn, autoRunPending),
	}
	if len(s.Top) > 0 {
		scores := make([]string, len(s.Top))
		for i, score := range s.Top {
			scores[i] = fmt.Sprintf("%d: %.1f%%", score.Digit, score.Probability*100)
		}
		lines = append(lines, "top: "+strings.Join(scores, ", "))
	}
	if s.Error != "" {
		lines = append(lines, "error: "+s.Error)
	}
	return strings.Join(lines, "\n")
}
