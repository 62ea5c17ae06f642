/*
Package status manages verdict tracking and destination-tree writes for igmdscan.

	            +-------------+
	            |   Status    |
	            | (Tracking)  |
	            +------+------+
	                   |
	      +-----------+-----------+
	      |                       |
	+-----+-----+           +----+----+
	|   Dest    |           | Verdicts|
	| (Writes)  |           | (Counts)|
	+-----------+           +---------+

🎯 Purpose:
- Tracks per-file scan outcomes (matched, no-metadata, skipped, failed)
- Aggregates archive verdicts and run summaries
- Owns all writes into the destination tree (atomic, append-only)

🔄 Flow:
1. The orchestrator classifies a file or archive entry
2. Matched content is written under the destination root via Manager
3. The outcome is tracked and folded into the run Summary

⚡ Key Responsibilities:
- Safe, atomic destination writes (temp file + rename)
- Concurrent-safe verdict bookkeeping (RWMutex)
- End-of-run summary counts

🔍 Example:

	mgr := status.NewManager(destRoot)

	err := mgr.WriteFile(ctx, "merged_1-1/merged_1-1-p1.jpg", content)

	mgr.TrackFile(ctx, status.FileInfo{Path: path, Status: status.StatusMatched})
	mgr.TrackArchiveVerdict(ctx, archivePath, true)

	summary := mgr.Summary()
*/
package status
