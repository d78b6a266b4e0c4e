// Command playground-shell is a line-oriented drawing pad for trying models
// and the preprocessing without a browser.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/abiosoft/ishell"
	"github.com/bbernhard/mnist-playground/datastructures"
	"github.com/bbernhard/mnist-playground/modelstore"
	"github.com/bbernhard/mnist-playground/predict/tfmodel"
	"github.com/bbernhard/mnist-playground/session"
	log "github.com/sirupsen/logrus"
)

func main() {
	modelName := flag.String("model", "", "Model file to run drawings through")
	modelType := flag.String("type", datastructures.TypeClassification, "Model type: classification or reconstruction")
	modelsDir := flag.String("models-dir", "models", "Directory the model is loaded from")
	fallbackURL := flag.String("fallback-url", "", "Base URL the model is downloaded from when it isn't in models-dir")
	input := flag.String("input", "input", "Name of the input operation")
	output := flag.String("output", "output", "Name of the output operation")
	viewport := flag.Int("viewport", 1024, "Viewport width the brush is sized for")
	autoRun := flag.Duration("auto-run", session.AutoRunDelay, "Run the model this long after a stroke ends (0 disables)")
	verbose := flag.Bool("verbose", false, "Log debug output")

	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	ctx := newPadCtxt(*viewport, *autoRun, *modelType)
	defer ctx.close()

	if *modelName != "" {
		opts := modelstore.DefaultOptions()
		opts.Dir = *modelsDir
		opts.FallbackURL = *fallbackURL
		models := modelstore.New(opts)

		ctx.dispatch(session.SelectModel{Name: *modelName})
		data, err := models.Fetch(context.Background(), *modelName)
		if err == nil {
			var m *tfmodel.Model
			m, err = tfmodel.New(data, *input, *output)
			if err == nil {
				ctx.setModel(m)
			}
		}
		if err != nil {
			log.Error("[Shell] ", err.Error())
			ctx.dispatch(session.ModelLoadFailed{Err: err})
		} else {
			ctx.dispatch(session.ModelLoaded{})
		}
	}

	shell := ishell.New()
	shell.SetPrompt("pad> ")
	for _, cmd := range ctx.commands() {
		shell.AddCmd(cmd)
	}

	if len(flag.Args()) > 0 {
		if err := shell.Process(flag.Args()...); err != nil {
			log.Error("[Shell] ", err.Error())
			os.Exit(1)
		}
		return
	}
	shell.Println("Draw on the 280x280 pad, type help for the commands")
	shell.Run()
}
