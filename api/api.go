// Package api is the HTTP front of the playground: it turns drawings into
// normalized vectors, queues them for the prediction workers and serves the
// results.
package api

import (
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bbernhard/mnist-playground/datastructures"
	"github.com/bbernhard/mnist-playground/preprocess"
	"github.com/bbernhard/mnist-playground/sketch"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Queue is where accepted requests go and results come back from.
type Queue interface {
	Enqueue(req datastructures.PredictionRequest) error
	Result(uuid string) (res datastructures.PredictionResult, found bool, err error)
}

const (
	// MaxBodyBytes bounds every request body.
	MaxBodyBytes = 4 << 20
	// MaxImageSide bounds both dimensions of an uploaded canvas.
	MaxImageSide = 4 * sketch.Size
	// MaxStrokePoints bounds the points of a stroke drawing.
	MaxStrokePoints = 20000
)

var errNoDrawing = errors.New("Drawing is missing")

func setCorsHeaders(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With, X-PINGOTHER, X-File-Name, Cache-Control")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")
}

func NewRouter(queue Queue) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	options := func(c *gin.Context) {
		setCorsHeaders(c)
		c.JSON(http.StatusOK, struct{}{})
	}
	router.OPTIONS("/v1/predict", options)
	router.OPTIONS("/v1/normalize", options)

	router.POST("/v1/predict", func(c *gin.Context) {
		setCorsHeaders(c)
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Location")

		vector, classificationType, err := readDrawing(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		id, err := uuid.NewV4()
		if err != nil {
			log.Debug("[Predicting] Couldn't create uuid: ", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Couldn't accept request - please try again later"})
			return
		}

		predictionRequest := datastructures.PredictionRequest{
			Uuid:    id.String(),
			Created: time.Now().Unix(),
			Type:    datastructures.TypeClassification,
			Input:   vector,
		}
		if classificationType == datastructures.TypeReconstruction {
			predictionRequest.Type = datastructures.TypeReconstruction
		}

		// add a prediction request to the 'predictme' queue
		if err := queue.Enqueue(predictionRequest); err != nil {
			log.Debug("[Predicting] Couldn't accept request: ", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Couldn't accept request - please try again later"})
			return
		}

		c.Writer.Header().Set("Location", predictionRequest.Uuid)
		c.JSON(http.StatusAccepted, gin.H{})
	})

	router.GET("/v1/predict/:uuid", func(c *gin.Context) {
		setCorsHeaders(c)

		res, found, err := queue.Result(c.Param("uuid"))
		if err != nil {
			log.Debug("[Predicting] Couldn't get status of request: ", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Couldn't get status of request - please try again later"})
			return
		}
		// nothing available yet. Which means either the uuid is wrong or
		// processing isn't finished. At this point we don't care for the reason.
		if !found {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		c.JSON(http.StatusOK, res)
	})

	router.POST("/v1/normalize", func(c *gin.Context) {
		setCorsHeaders(c)

		vector, _, err := readDrawing(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"vector": vector})
	})

	return router
}

// readDrawing accepts either a multipart "image" upload of the raw canvas or a
// JSON list of strokes and returns the normalized vector.
func readDrawing(c *gin.Context) (preprocess.Vector, string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, _, err := c.Request.FormFile("image")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, "", errors.New("Picture is too large")
			}
			return nil, "", errors.New("Picture is missing")
		}
		defer file.Close()

		// check the declared size before the decoder allocates for it
		cfg, _, err := image.DecodeConfig(file)
		if err != nil {
			return nil, "", errors.New("Picture couldn't be decoded")
		}
		if cfg.Width > MaxImageSide || cfg.Height > MaxImageSide {
			return nil, "", errors.New("Picture is too large")
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return nil, "", errors.New("Picture couldn't be decoded")
		}

		img, err := imaging.Decode(file)
		if err != nil {
			return nil, "", errors.New("Picture couldn't be decoded")
		}
		return preprocess.Normalize(img), c.PostForm("classification_type"), nil
	}

	var req datastructures.StrokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, "", errNoDrawing
	}
	points := 0
	for _, stroke := range req.Strokes {
		points += len(stroke)
	}
	if points > MaxStrokePoints {
		return nil, "", errors.New("Drawing has too many points")
	}
	return Render(req), req.ClassificationType, nil
}

// Render replays the strokes of req on a fresh surface and normalizes it.
func Render(req datastructures.StrokeRequest) preprocess.Vector {
	renderer := sketch.NewRenderer(sketch.NewSurface(), sketch.BrushWidthFor(req.ViewportWidth))
	strokes := make([][]sketch.Point, len(req.Strokes))
	for i, stroke := range req.Strokes {
		strokes[i] = make([]sketch.Point, len(stroke))
		for j, p := range stroke {
			strokes[i][j] = sketch.ToSurface(p.X, p.Y, req.DisplayWidth, req.DisplayHeight)
		}
	}
	renderer.Replay(strokes)
	return preprocess.Normalize(renderer.Surface())
}
