/*
Package operation implements the file operations a build engine delegates to
this module: copy, prepare directory and mirror.

	+-------------+      +-------------+      +-------------+
	|    Copy     |      |   Prepare   |      |   Mirror    |
	| (src->dst)  |      | (map->dir)  |      | (exec->os)  |
	+------+------+      +------+------+      +------+------+
	       |                    |                    |
	       +--------------------+--------------------+
	                            |
	                     +------+------+
	                     |    Host     |
	                     | fingerprint |
	                     |  wildcards  |
	                     | synchronize |
	                     +------+------+
	                            |
	                     +------+------+
	                     |    Deps     |
	                     |  (facts)    |
	                     +-------------+

🎯 Purpose:
- Moves files between the execution hierarchy and the local filesystem, in all
  four directions
- Merges into existing directories without deleting unrelated content
- Reports exactly which paths were read and produced, with their fingerprints,
  so the host can skip the next run when nothing changed

🔄 Flow:
1. Classify the source through the host fingerprinter
2. Enumerate the transfer set (single file, or wildcard matches)
3. Build an in-memory tree and let the host synchronize it
4. Report input, output and addition dependencies
5. Return the produced locations

⚡ Errors:
Every failure is one of ErrNotFound, ErrConflict or ErrInvalidArgument, or a
collaborator error passed through unchanged. Nothing is retried and partial
writes are not rolled back; running the operation again converges.

🔍 Example:

	eng, err := operation.New(operation.Options{Host: h, Deps: recorder})
	res, err := eng.Copy(ctx, src, dst, wildcard.MustSet("*.txt"))
*/
package operation
