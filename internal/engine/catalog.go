package engine

// Backend names.
const (
	BackendAuto          = "auto"
	BackendMLX           = "mlx"
	BackendFasterWhisper = "faster-whisper"
	BackendWhisperCpp    = "whisper-cpp"
	BackendOpenAI        = "openai"
)

// mlxCatalog holds Hugging Face repos converted for MLX.
var mlxCatalog = map[Tier]string{
	HighAccuracy: "mlx-community/whisper-large-v3-mlx",
	Fast:         "mlx-community/whisper-large-v3-turbo",
	Balanced:     "mlx-community/whisper-medium-mlx",
	Fastest:      "mlx-community/whisper-small-mlx",
}

// genericCatalog holds the model names shared by faster-whisper and whisper.cpp.
var genericCatalog = map[Tier]string{
	HighAccuracy: "large-v3",
	Fast:         "large-v3-turbo",
	Balanced:     "medium",
	Fastest:      "small",
}

const openAIModelID = "whisper-1"

// ModelID returns the model identifier a backend loads for a tier.
func ModelID(backend string, tier Tier) string {
	switch backend {
	case BackendMLX:
		if id, ok := mlxCatalog[tier]; ok {
			return id
		}
		return mlxCatalog[HighAccuracy]
	case BackendOpenAI:
		return openAIModelID
	default:
		if id, ok := genericCatalog[tier]; ok {
			return id
		}
		return genericCatalog[HighAccuracy]
	}
}

// Backends lists the backend names accepted in configuration.
func Backends() []string {
	return []string{BackendAuto, BackendMLX, BackendFasterWhisper, BackendWhisperCpp, BackendOpenAI}
}

// IsValidBackend reports whether name is a known backend or auto.
func IsValidBackend(name string) bool {
	for _, b := range Backends() {
		if b == name {
			return true
		}
	}
	return false
}
