package analyzer

// ProgressReporter provides callbacks for reporting analysis progress.
// Implementations can display progress bars, log messages, or remain silent.
type ProgressReporter interface {
	// OnDiscoveryComplete is called once templates are known. skipped counts
	// templates an incremental run leaves out.
	OnDiscoveryComplete(templates, skipped int)

	// OnExtractionStart is called before projections are written.
	OnExtractionStart(total int)

	// OnTemplateExtracted is called after each projection is written.
	OnTemplateExtracted(path string)

	// OnAnalyzerStart is called right before the analyzer process starts.
	OnAnalyzerStart(command string)

	// OnComplete is called when the run finished, successfully or not.
	OnComplete(report *Report)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (NoOpProgressReporter) OnDiscoveryComplete(templates, skipped int) {}
func (NoOpProgressReporter) OnExtractionStart(total int)                {}
func (NoOpProgressReporter) OnTemplateExtracted(path string)            {}
func (NoOpProgressReporter) OnAnalyzerStart(command string)             {}
func (NoOpProgressReporter) OnComplete(report *Report)                  {}
