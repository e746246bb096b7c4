package efs

import "github.com/efsfs/go-efs/efserr"

// errWalkAborted is returned by Walk when a visitor reports Error; the
// visitor is expected to have already recorded the real cause.
var errWalkAborted = efserr.New(efserr.IO, "block walk aborted by visitor")
