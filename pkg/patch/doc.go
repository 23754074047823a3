/*
Package patch applies ordered, exact-match text patches to an in-memory document.

	+-------------+      +-------------+      +-------------+
	|  Document   | ---> |  Step 0..n  | ---> |   Result    |
	|  (before)   |      | (in order)  |      | (after +    |
	+-------------+      +-------------+      |  outcomes)  |
	                                          +-------------+

🎯 Purpose:
- Locate a literal needle in the current buffer
- Replace only its first occurrence
- Record whether each step was applied or skipped

🔄 Flow:
1. The buffer starts as the input document
2. Each step searches the buffer as left by the previous step
3. A missing needle either aborts (Strict) or is skipped (Lenient)

📝 Notes:
Block steps (NewBlockStep) replace whole lines instead of a needle: from the
first line containing a start marker up to the line before the first later
line containing the end marker. Several start markers let a block written by
an earlier run be replaced again.

Needles are never interpreted as patterns. Applying a set twice is not
idempotent: once a needle has been replaced it is usually gone, so a second
pass reports every step as skipped and leaves the document untouched.

🔍 Example:

	step, err := patch.NewStep("B", "X\nY")
	if err != nil {
		return err
	}
	res, err := patch.Apply("A\nB\nC", patch.Set{step}, patch.Strict)
	// res.Document == "A\nX\nY\nC"
*/
package patch
