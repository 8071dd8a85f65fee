package toolexec

// SubmitResultToolName is the well-known terminal tool every worker and the
// code generator speak (spec.md §4.2, §4.4, §4.10). It is schema-only: it is
// never executed against the filesystem by the Executor, it is the sentinel
// the Worker Runtime and Execution Foreman look for to end a multi-turn
// loop.
const SubmitResultToolName = "submit_result"

// SubmitCodeChangesToolName is the terminal tool for code generation
// (spec.md §4.10, §6).
const SubmitCodeChangesToolName = "submit_code_changes"
