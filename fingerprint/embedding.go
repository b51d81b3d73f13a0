package fingerprint

import (
	"fmt"
	"image"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"photocons/logging"
)

// Embedder produces a fixed-length visual embedding through an ONNX model
// loaded into OpenCV's DNN module. It is the expensive, high-accuracy
// similarity signal; the grouper only consults it when the perceptual-hash
// screen is ambiguous.
type Embedder struct {
	net gocv.Net
	mu  sync.Mutex
}

// NewEmbedder loads the model at modelPath. An empty path disables
// embedding extraction and returns a nil embedder, which every caller
// treats as "no embedding available".
func NewEmbedder(modelPath string) (*Embedder, error) {
	if modelPath == "" {
		return nil, nil
	}

	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to load embedding model: %s", modelPath)
	}

	return &Embedder{net: net}, nil
}

// Close releases the underlying network.
func (e *Embedder) Close() {
	if e != nil {
		e.net.Close()
	}
}

// Embed runs one forward pass and returns an L2-normalized vector.
// The DNN forward pass is not reentrant, so calls are serialized.
func (e *Embedder) Embed(img gocv.Mat) ([]float32, error) {
	if e == nil {
		return nil, nil
	}
	if img.Empty() {
		return nil, fmt.Errorf("cannot embed empty image")
	}

	// Models expect 3-channel input at a fixed resolution.
	input := gocv.NewMat()
	defer input.Close()
	if img.Channels() == 1 {
		gocv.CvtColor(img, &input, gocv.ColorGrayToBGR)
	} else {
		img.CopyTo(&input)
	}

	blob := gocv.BlobFromImage(input, 1.0/255.0, image.Point{X: 224, Y: 224},
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.net.SetInput(blob, "")
	out := e.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("cannot read embedding output: %v", err)
	}

	vec := make([]float32, len(data))
	copy(vec, data)
	normalize(vec)

	logging.DebugLog("Computed %d-dimensional embedding", len(vec))
	return vec, nil
}

// normalize scales the vector to unit length so cosine similarity reduces
// to a dot product.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
