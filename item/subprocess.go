package item

import "time"

// SubprocessItem runs an external command via a Subprocess Worker.
//
// LogPath is where the worker redirects the child's merged stdout and
// stderr, exactly as the original dpxdt client's ProcessItem.log_path does
// — the worker opens the file and passes it directly to the child process,
// it never buffers output in memory. A caller that leaves LogPath empty
// gets a worker-assigned temporary file; LogPath is stamped back onto the
// item either way, so it is always the authoritative place to find the
// command's output once the item completes.
//
// ReturnCode is the single canonical field for the process's exit status;
// it is populated on natural exit only. A command that is killed for
// exceeding Timeout does not populate ReturnCode — it populates Err with a
// *worker/subprocess.TimeoutError instead.
type SubprocessItem struct {
	Base

	Path    string
	Args    []string
	Env     []string
	Dir     string
	Timeout time.Duration
	LogPath string

	ReturnCode int
}

// NewSubprocess builds a SubprocessItem for running path with args. LogPath
// can be set on the returned item before it is yielded; if left empty, the
// Subprocess Worker assigns a temporary file and records its path here.
func NewSubprocess(path string, args ...string) *SubprocessItem {
	return &SubprocessItem{
		Base: NewBase(KindSubprocess),
		Path: path,
		Args: args,
	}
}
