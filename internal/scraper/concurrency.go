package scraper

import (
	"runtime"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/mem"
)

// tabMemory is roughly what one tab rendering an infinite feed holds
const tabMemory = 300 << 20

// OptimalConcurrency calculates how many browser tabs to drive at once
func OptimalConcurrency() int {
	// Each tab spends most of its time waiting on the page and sleeps
	optimal := min(max(runtime.NumCPU()*2, 1), 8)

	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Debug().Err(err).Msg("Cannot read system memory")
		return optimal
	}
	return byMemory(optimal, vm.Available)
}

func byMemory(optimal int, available uint64) int {
	fit := int(available / tabMemory)
	if fit < 1 {
		return 1
	}
	return min(optimal, fit)
}
