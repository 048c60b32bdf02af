package pipeline

import (
	"log"
	"runtime"
)

// ReportMemory logs current Go heap usage and total system RAM as a
// diagnostic, giving an operator visibility into the chunked driver's
// memory discipline (peak memory bounded to one chunk's meshes and results)
// without feeding back into chunk sizing automatically — chunk size stays
// operator-controlled via Options.ChunkSize.
func ReportMemory(stage string) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	heapMB := float64(m.Alloc) / (1024 * 1024)

	total, err := totalSystemRAM()
	if err != nil {
		log.Printf("%s: heap %.0f MB (system RAM unknown: %v)", stage, heapMB, err)
		return
	}
	totalGB := float64(total) / (1024 * 1024 * 1024)
	log.Printf("%s: heap %.0f MB, system RAM %.1f GB", stage, heapMB, totalGB)
}
