// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// fingerprintBytes is the digest prefix printed in logs.
const fingerprintBytes = 8

// fingerprintKey is drawn once per process. Fingerprints correlate
// payloads within one run and are useless for guessing a payload
// offline, since the key never leaves the process.
var fingerprintKey = func() [32]byte {
	var key [32]byte
	if _, err := rand.Read(key[:]); err != nil {
		panic("lsmp-echo: drawing fingerprint key: " + err.Error())
	}
	return key
}()

// fingerprint returns a short keyed BLAKE3 digest of payload for logs.
func fingerprint(payload []byte) string {
	hasher, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		panic("lsmp-echo: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(payload)
	return hex.EncodeToString(hasher.Sum(nil)[:fingerprintBytes])
}
