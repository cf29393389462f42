package models

// FileCandidate is a file found under a snapshot root. RelativePath is slash
// separated and relative to the root.
type FileCandidate struct {
	RelativePath string
	AbsolutePath string
	Size         int64
	Binary       bool
}

// SkipReason explains why a path was left out of the aggregated document.
type SkipReason string

const (
	SkipDeniedDirectory SkipReason = "denied_directory"
	SkipGitignored      SkipReason = "gitignored"
	SkipExtension       SkipReason = "extension_not_allowed"
	SkipTooLarge        SkipReason = "too_large"
	SkipTooSmall        SkipReason = "too_small"
	SkipBinary          SkipReason = "binary"
	SkipNotRegular      SkipReason = "not_regular_file"
	SkipUnreadable      SkipReason = "unreadable"

	// WarnInvalidUTF8 marks an included file whose invalid byte sequences
	// were replaced with U+FFFD.
	WarnInvalidUTF8 SkipReason = "invalid_utf8"
)

// Warning is a recoverable selection problem. It never aborts a run.
type Warning struct {
	Path   string     `json:"path"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// Selection is one step of a snapshot walk: an accepted candidate when
// Warning is nil, a skipped path otherwise.
type Selection struct {
	Candidate FileCandidate
	Warning   *Warning
}

// Accepted reports whether the selection should be read by the aggregator.
func (s Selection) Accepted() bool {
	return s.Warning == nil
}

// SelectorConfig holds the file selection policy.
type SelectorConfig struct {
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
	DeniedDirs        []string `mapstructure:"denied_dirs"`
	MaxFileSize       int64    `mapstructure:"max_file_size"`
	MinFileSize       int64    `mapstructure:"min_file_size"`
	RespectGitignore  bool     `mapstructure:"respect_gitignore"`
}

// AggregatorConfig holds the budget policy. Budget is counted in characters
// (Unicode code points). MaxFiles of zero means no file count cap.
type AggregatorConfig struct {
	Budget   int `mapstructure:"budget"`
	MaxFiles int `mapstructure:"max_files"`
}
