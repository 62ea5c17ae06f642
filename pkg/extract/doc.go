/*
Package extract orchestrates the scan run: walking the source tree,
classifying loose images, and selectively extracting archive entries that
carry generation metadata.

	            +-------------+
	            |  Processor  |
	            |   (Run)     |
	            +------+------+
	                   |
	      +-----------+-----------+
	      |           |           |
	+-----+----+ +----+-----+ +---+------+
	|  Loose   | | Archive  | |  Miss    |
	|  Images  | | Entries  | |  Log     |
	+----------+ +----------+ +----------+

🎯 Purpose:
- Walks the scan root and dispatches every entry into a bounded worker group
- Runs the per-archive pipeline: open → resolve destination → list →
  bounded entry fan-out → verdict aggregation
- Guarantees task-private temp staging with cleanup on every exit path

🔄 Flow:
1. scan.Walk emits classified source entries
2. Loose images are classified once and copied on a match
3. Archives fan out one task per recognized image entry, bounded by a
   semaphore; each task extracts, stages, classifies, copies, cleans up
4. The archive verdict is the OR over its entry verdicts
5. Non-matching top-level files are dumped into the miss log when enabled

⚡ Key Responsibilities:
- Bounded concurrency at both levels (errgroup SetLimit + semaphore)
- Collision-safe destination naming ("merged"/"chapter" suffix probing)
- Failure isolation: entry, file and archive errors never abort siblings
- Cancellation: dispatch stops, in-flight tasks finish their cleanup

🔍 Example:

	p, err := extract.New(extract.Options{
		Classifier: classify.New(),
		Status:     status.NewManager(destDir),
		Walk:       scan.DefaultOptions(),
	})
	summary, err := p.Run(ctx, scanDir)
*/
package extract
