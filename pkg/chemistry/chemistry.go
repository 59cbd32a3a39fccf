// Package chemistry implements the Identity/Hashing contract (C2): a pure
// canonicalize-then-hash function used to deduplicate Molecule documents, and
// a structural comparison used to detect a hash collision between two
// molecules that hashed identically without being the same structure.
//
// A production deployment would swap this package for a real computational
// chemistry canonicalization library (atom reordering by connectivity,
// symmetry-aware geometry normalization); the Hash/Compare contract is the
// seam at which that swap happens, so this implementation deliberately keeps
// its canonicalization simple and fully deterministic.
package chemistry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
)

// geometryPrecision is the number of decimal places geometry is rounded to
// before hashing, so that floating point noise in equivalent geometries does
// not produce different hashes.
const geometryPrecision = 6

// Hash returns the canonical structural hash of a molecule. Two molecules
// that are the same structure up to atom ordering hash identically;
// molecules that differ in symbols, geometry (beyond rounding precision),
// charge, or multiplicity hash differently.
func Hash(symbols []string, geometry []float64, charge, multiplicity int) (string, error) {
	if len(symbols) == 0 {
		return "", fmt.Errorf("chemistry: molecule has no atoms")
	}
	if len(geometry) != len(symbols)*3 {
		return "", fmt.Errorf("chemistry: geometry length %d does not match %d atoms", len(geometry), len(symbols))
	}

	canon := canonicalize(symbols, geometry)

	h := sha256.New()
	fmt.Fprintf(h, "charge=%d;multiplicity=%d;", charge, multiplicity)
	for _, a := range canon {
		fmt.Fprintf(h, "%s:%.*f,%.*f,%.*f;", a.symbol, geometryPrecision, a.x, geometryPrecision, a.y, geometryPrecision, a.z)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Compare reports whether two molecules are structurally identical once
// canonicalized, independent of input atom ordering. It is used after a hash
// match to rule out a hash collision: if the hashes match but Compare
// returns false, the caller is looking at a genuine collision, not a
// duplicate.
func Compare(aSymbols []string, aGeometry []float64, aCharge, aMultiplicity int,
	bSymbols []string, bGeometry []float64, bCharge, bMultiplicity int) bool {
	if aCharge != bCharge || aMultiplicity != bMultiplicity {
		return false
	}
	if len(aSymbols) != len(bSymbols) {
		return false
	}

	ca := canonicalize(aSymbols, aGeometry)
	cb := canonicalize(bSymbols, bGeometry)
	if len(ca) != len(cb) {
		return false
	}
	for i := range ca {
		if ca[i].symbol != cb[i].symbol {
			return false
		}
		if round(ca[i].x) != round(cb[i].x) || round(ca[i].y) != round(cb[i].y) || round(ca[i].z) != round(cb[i].z) {
			return false
		}
	}
	return true
}

type atom struct {
	symbol  string
	x, y, z float64
}

// canonicalize builds a deterministic atom ordering: sort by symbol, then by
// rounded coordinates, so that two descriptions of the same molecule in a
// different atom order produce the same sequence.
func canonicalize(symbols []string, geometry []float64) []atom {
	atoms := make([]atom, len(symbols))
	for i, sym := range symbols {
		atoms[i] = atom{
			symbol: strings.ToUpper(sym),
			x:      geometry[i*3],
			y:      geometry[i*3+1],
			z:      geometry[i*3+2],
		}
	}
	sort.Slice(atoms, func(i, j int) bool {
		if atoms[i].symbol != atoms[j].symbol {
			return atoms[i].symbol < atoms[j].symbol
		}
		if round(atoms[i].x) != round(atoms[j].x) {
			return round(atoms[i].x) < round(atoms[j].x)
		}
		if round(atoms[i].y) != round(atoms[j].y) {
			return round(atoms[i].y) < round(atoms[j].y)
		}
		return round(atoms[i].z) < round(atoms[j].z)
	})
	return atoms
}

func round(v float64) float64 {
	scale := math.Pow(10, geometryPrecision)
	return math.Round(v*scale) / scale
}
