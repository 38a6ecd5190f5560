// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the circle loss for metric learning.
//
// Circle loss pulls query embeddings towards their positives and pushes
// them away from negatives, re-weighting every pair by how far it sits
// from its optimum. Two reductions are available: a log-sum-exp form
// (PolicyLogSumExp) and binary cross-entropy over the rescaled logits
// (PolicyBCE).
//
// Example:
//
//	import (
//	    "github.com/born-ml/circleloss/autodiff"
//	    "github.com/born-ml/circleloss/backend/cpu"
//	    "github.com/born-ml/circleloss/nn"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//	    backend.Tape().StartRecording()
//
//	    loss, err := nn.NewCircleLoss[float32](nn.DefaultCircleLossConfig(), backend)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    out, err := loss.Forward(positives, negatives, queries)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    grads := autodiff.Backward(out, backend)
//	}
//
// Feature batches must have rank >= 2; trailing dimensions are flattened
// into one feature axis. Errors wrap the sentinels below and can be
// matched with errors.Is.
package nn
