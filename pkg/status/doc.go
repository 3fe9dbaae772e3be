/*
Package status reports what a synchronization did to each path.

	+-------------+
	|    Tree     |
	| (in memory) |
	+------+------+
	       |
	+------+------+
	| Synchronize |
	+------+------+
	       |
	+------+------+
	|   Report    |
	| (per path)  |
	+-------------+

🎯 Purpose:
- Records one Change per touched path: created, modified, unchanged or deleted
- Answers "did this invocation write anything" for idempotence checks
- Formats changes and totals for humans

🔄 Flow:
1. tree.Synchronize appends a Change for every node it visits
2. Deletions from keep-set pruning are appended as StatusDeleted
3. The operation reads Report.Written() and logs the summary
4. The CLI prints each change through a Formatter
*/
package status
