// Package provenance infers where an uploaded image came from: a camera capture,
// a screenshot, or a transferred or edited copy.
package provenance

import (
	"regexp"
)

// Rule pairs a filename pattern with the indicator label it produces.
type Rule struct {
	Pattern *regexp.Regexp
	Label   string
}

func rule(pattern, label string) Rule {
	return Rule{Pattern: regexp.MustCompile(pattern), Label: label}
}

// TransferRules flag filenames typical of messaging exports and file transfers.
var TransferRules = []Rule{
	rule(`^IMG-\d{8}-WA\d{4}`, "WhatsApp transfer"),
	rule(`^received_\d+`, "Facebook Messenger"),
	rule(`^\d{8}_\d{6}`, "Generic timestamp pattern"),
	rule(`^IMG_\d{8}_\d{6}`, "Camera timestamp pattern"),
	rule(`^VID-\d{8}-WA\d{4}`, "WhatsApp video"),
	rule(`^\d{13}`, "Unix timestamp naming"),
	rule(`^temp_`, "Temporary file"),
	rule(`^bluetooth_`, "Bluetooth transfer"),
	rule(`^xender_`, "Xender transfer"),
	rule(`^shareit_`, "ShareIt transfer"),
	rule(`^Copy of `, "File copy"),
	rule(`^Edited_`, "Edited file"),
}

// ProcessingRules flag screenshots and filenames produced by editing tools.
// Labels containing "Screenshot" or "processing" drive classification.
var ProcessingRules = []Rule{
	rule(`^Screenshot`, "Screenshot"),
	rule(`^Screen Shot`, "macOS Screenshot"),
	rule(`^Image \d{4}-\d{2}-\d{2} at \d{2}\.\d{2}\.\d{2}`, "macOS Screenshot (renamed)"),
	rule(`_[a-f0-9]{8}\.`, "Hash suffix (processing)"),
	rule(`^Untitled`, "Untitled file (processing)"),
	rule(`^photo_\d+`, "Generic photo naming"),
	rule(`^image_\d+`, "Generic image naming"),
	rule(`\(1\)|\(2\)|\(3\)`, "Duplicate file naming"),
}

// MatchAll returns the label of every rule matching name, in table order.
func MatchAll(name string, rules []Rule) []string {
	var labels []string
	for _, r := range rules {
		if r.Pattern.MatchString(name) {
			labels = append(labels, r.Label)
		}
	}
	return labels
}
