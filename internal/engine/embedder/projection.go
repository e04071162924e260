package embedder

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// projection is a dense layer y = Wx (+ b) loaded from a safetensors file,
// as shipped in the 2_Dense folder of some sentence-transformers checkpoints.
type projection struct {
	weights []float32 // row-major [outDim, inDim]
	bias    []float32 // nil when the layer has no bias
	inDim   int
	outDim  int
}

type tensorMeta struct {
	Dtype       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// loadProjection reads "linear.weight" and, when present, "linear.bias".
// Both must be F32.
func loadProjection(path string) (*projection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("projection: %w", err)
	}
	header, body, err := splitSafetensors(data)
	if err != nil {
		return nil, fmt.Errorf("projection: %s: %w", path, err)
	}

	w, shape, err := readTensor(header, body, "linear.weight")
	if err != nil {
		return nil, fmt.Errorf("projection: %w", err)
	}
	if len(shape) != 2 {
		return nil, fmt.Errorf("projection: linear.weight has shape %v, want 2D", shape)
	}
	p := &projection{weights: w, outDim: shape[0], inDim: shape[1]}

	if _, ok := header["linear.bias"]; ok {
		b, bshape, err := readTensor(header, body, "linear.bias")
		if err != nil {
			return nil, fmt.Errorf("projection: %w", err)
		}
		if len(bshape) != 1 || bshape[0] != p.outDim {
			return nil, fmt.Errorf("projection: linear.bias has shape %v, want [%d]", bshape, p.outDim)
		}
		p.bias = b
	}
	return p, nil
}

// splitSafetensors separates the JSON header (8-byte little-endian length
// prefix) from the tensor data.
func splitSafetensors(data []byte) (map[string]json.RawMessage, []byte, error) {
	if len(data) < 8 {
		return nil, nil, fmt.Errorf("file too small: %d bytes", len(data))
	}
	n := binary.LittleEndian.Uint64(data[:8])
	if n > uint64(len(data)-8) {
		return nil, nil, fmt.Errorf("header length %d exceeds file size", n)
	}
	var header map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+n], &header); err != nil {
		return nil, nil, fmt.Errorf("parse header: %w", err)
	}
	return header, data[8+n:], nil
}

func readTensor(header map[string]json.RawMessage, body []byte, name string) ([]float32, []int, error) {
	raw, ok := header[name]
	if !ok {
		return nil, nil, fmt.Errorf("tensor %q not found", name)
	}
	var meta tensorMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, nil, fmt.Errorf("tensor %q metadata: %w", name, err)
	}
	if meta.Dtype != "F32" {
		return nil, nil, fmt.Errorf("tensor %q has dtype %s, want F32", name, meta.Dtype)
	}

	count := 1
	for _, d := range meta.Shape {
		count *= d
	}
	start, end := meta.DataOffsets[0], meta.DataOffsets[1]
	if start < 0 || end > len(body) || end-start != count*4 {
		return nil, nil, fmt.Errorf("tensor %q: data range [%d:%d] does not fit shape %v", name, start, end, meta.Shape)
	}

	out := make([]float32, count)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[start+i*4:]))
	}
	return out, meta.Shape, nil
}

func (p *projection) apply(vec []float32) []float32 {
	out := make([]float32, p.outDim)
	for i := range out {
		row := p.weights[i*p.inDim : (i+1)*p.inDim]
		var sum float32
		for j, w := range row {
			sum += w * vec[j]
		}
		if p.bias != nil {
			sum += p.bias[i]
		}
		out[i] = sum
	}
	return out
}
