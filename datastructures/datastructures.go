package datastructures

const (
	TypeClassification = "classification"
	TypeReconstruction = "reconstruction"
)

type ModelInfo struct {
	Name      string   `json:"name" yaml:"name"`
	Build     int32    `json:"build" yaml:"build"`
	Created   string   `json:"created" yaml:"created"`
	TrainedOn []string `json:"trained_on" yaml:"trained_on"`
	BasedOn   string   `json:"based_on" yaml:"based_on"`
}

type StrokePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// StrokeRequest is a drawing sent as raw pointer coordinates. Coordinates are
// in display space; DisplayWidth/DisplayHeight is the on-screen size of the
// canvas element (zero means coordinates are already in surface pixels).
type StrokeRequest struct {
	Strokes            [][]StrokePoint `json:"strokes"`
	ViewportWidth      int             `json:"viewport_width"`
	DisplayWidth       float64         `json:"display_width"`
	DisplayHeight      float64         `json:"display_height"`
	ClassificationType string          `json:"classification_type"`
}

type PredictionRequest struct {
	Uuid    string    `json:"uuid"`
	Created int64     `json:"created"`
	Type    string    `json:"type"`
	Input   []float32 `json:"input"`
}

type ClassScore struct {
	Digit       int     `json:"digit"`
	Probability float32 `json:"probability"`
}

type Classification struct {
	Digit      int          `json:"digit"`
	Confidence float32      `json:"confidence"`
	Scores     []ClassScore `json:"scores"`
}

type PredictionResult struct {
	Uuid           string          `json:"uuid"`
	Type           string          `json:"type"`
	Classification *Classification `json:"classification,omitempty"`
	Reconstruction []float32       `json:"reconstruction,omitempty"`
	ModelInfo      ModelInfo       `json:"model_info"`
	Error          string          `json:"error,omitempty"`
}
