package tesseract

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FormatPDF and FormatText are the engine config names selecting output renderers.
const (
	FormatPDF  = "pdf"
	FormatText = "txt"
)

// Config holds the engine options for one OCR call
type Config struct {
	Lang         string `yaml:"lang"`          // Language identifier, e.g. "eng+jpn"
	DPI          int    `yaml:"dpi"`           // Rasterization resolution for PDF pages
	PSM          int    `yaml:"psm"`           // Page segmentation mode
	OEM          int    `yaml:"oem"`           // OCR engine mode
	ConfigString string `yaml:"config_string"` // Extra arguments, split on whitespace
	OutputPDF    bool   `yaml:"output_pdf"`    // Also produce a searchable PDF
	TessdataDir  string `yaml:"tessdata_dir"`  // Override for the language data directory
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Lang: "eng",
		DPI:  300,
		PSM:  3,
		OEM:  3,
	}
}

// Args converts the config into engine command-line tokens.
// The order is fixed: language, segmentation mode, engine mode, extra
// arguments, the pdf output format and finally the tessdata directory.
func (c Config) Args() []string {
	return c.args(true)
}

// BaseArgs is Args without the pdf output format token.
func (c Config) BaseArgs() []string {
	return c.args(false)
}

func (c Config) args(withFormat bool) []string {
	args := []string{
		"-l", c.Lang,
		"--psm", strconv.Itoa(c.PSM),
		"--oem", strconv.Itoa(c.OEM),
	}
	args = append(args, strings.Fields(c.ConfigString)...)
	if withFormat && c.OutputPDF {
		args = append(args, FormatPDF)
	}
	if c.TessdataDir != "" {
		args = append(args, "--tessdata-dir", c.TessdataDir)
	}
	return args
}

// ParseConfigString builds a Config from a command-line style string such as
// "-l eng+deu --psm 6 --oem 1 pdf". Tokens are split on whitespace with no
// quoting, matching how Args splits ConfigString, so characters like '#' and
// apostrophes in -c values pass through untouched. Unrecognised tokens are
// kept in ConfigString in their original order.
func ParseConfigString(s string) (Config, error) {
	cfg := DefaultConfig()
	parts := strings.Fields(s)

	var extra []string
	for i := 0; i < len(parts); i++ {
		hasValue := i+1 < len(parts)
		switch {
		case parts[i] == "-l" && hasValue:
			cfg.Lang = parts[i+1]
			i++
		case parts[i] == "--psm" && hasValue:
			psm, err := strconv.Atoi(parts[i+1])
			if err != nil {
				return cfg, fmt.Errorf("invalid --psm value %q: %w", parts[i+1], err)
			}
			cfg.PSM = psm
			i++
		case parts[i] == "--oem" && hasValue:
			oem, err := strconv.Atoi(parts[i+1])
			if err != nil {
				return cfg, fmt.Errorf("invalid --oem value %q: %w", parts[i+1], err)
			}
			cfg.OEM = oem
			i++
		case parts[i] == "--tessdata-dir" && hasValue:
			cfg.TessdataDir = parts[i+1]
			i++
		case parts[i] == FormatPDF:
			cfg.OutputPDF = true
		default:
			extra = append(extra, parts[i])
		}
	}
	cfg.ConfigString = strings.Join(extra, " ")
	return cfg, nil
}

// ConfigFromMap overlays the known keys of m onto the defaults.
// Keys use the YAML field names; unknown keys are ignored.
func ConfigFromMap(m map[string]any) (Config, error) {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(m)
	if err != nil {
		return cfg, fmt.Errorf("failed to encode config map: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config map: %w", err)
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML file and overlays it onto the defaults
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
