package core_test

import (
	"fmt"

	"github.com/cwbudde/algo-eeg/dsp/core"
)

func ExampleClamp() {
	fmt.Println(core.Clamp(1.3, 0, 1), core.Clamp(-0.2, 0, 1), core.Clamp(0.4, 0, 1))
	// Output:
	// 1 0 0.4
}
