package embedder

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv guards process-wide ONNX Runtime initialisation.
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// onnxSession wraps a DynamicAdvancedSession for encoder-only transformers.
// BERT exports take token_type_ids; MPNet and RoBERTa exports do not.
type onnxSession struct {
	session       *ort.DynamicAdvancedSession
	inputNames    []string
	outputName    string
	hiddenDim     int64
	hasTokenTypes bool
}

func newONNXSession(modelPath, libPath string) (*onnxSession, error) {
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: initialize runtime from %s: %w", libPath, err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: read model info: %w", err)
	}
	inputNames, hasTypes, err := resolveInputs(inputs)
	if err != nil {
		return nil, err
	}

	// The first output must be the token-level hidden states [batch, seq, dim].
	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}
	out := outputs[0]
	if len(out.Dimensions) != 3 || out.Dimensions[2] <= 0 {
		return nil, fmt.Errorf("onnx: expected [batch, seq, dim] output, got %v", out.Dimensions)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(4)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, []string{out.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: create session: %w", err)
	}

	return &onnxSession{
		session:       session,
		inputNames:    inputNames,
		outputName:    out.Name,
		hiddenDim:     out.Dimensions[2],
		hasTokenTypes: hasTypes,
	}, nil
}

// resolveInputs returns the input names to feed, in feed order. input_ids and
// attention_mask are required; token_type_ids is fed when the model declares it.
func resolveInputs(inputs []ort.InputOutputInfo) (names []string, hasTypes bool, err error) {
	declared := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		declared[in.Name] = true
	}
	for _, name := range []string{"input_ids", "attention_mask"} {
		if !declared[name] {
			return nil, false, fmt.Errorf("onnx: model missing required input %q", name)
		}
	}
	names = []string{"input_ids", "attention_mask"}
	if declared["token_type_ids"] {
		names = append(names, "token_type_ids")
		hasTypes = true
	}
	return names, hasTypes, nil
}

// infer runs one batch and returns the flat [batch * seq * hiddenDim] output.
func (s *onnxSession) infer(b tokenized) ([]float32, error) {
	shape := ort.NewShape(b.batchSize, b.seqLen)

	feeds := [][]int64{b.inputIDs, b.attentionMask}
	if s.hasTokenTypes {
		feeds = append(feeds, make([]int64, len(b.inputIDs)))
	}

	inputs := make([]ort.Value, 0, len(feeds))
	defer func() {
		for _, v := range inputs {
			v.Destroy()
		}
	}()
	for i, data := range feeds {
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("onnx: %s tensor: %w", s.inputNames[i], err)
		}
		inputs = append(inputs, t)
	}

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(b.batchSize, b.seqLen, s.hiddenDim))
	if err != nil {
		return nil, fmt.Errorf("onnx: output tensor: %w", err)
	}
	defer out.Destroy()

	if err := s.session.Run(inputs, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("onnx: inference: %w", err)
	}

	src := out.GetData()
	result := make([]float32, len(src))
	copy(result, src)
	return result, nil
}

func (s *onnxSession) close() error {
	return s.session.Destroy()
}
