package core

import (
	"bytes"
	"fmt"
	"testing"
)

// ============================================================================
// Conversion Function Benchmarks
// ============================================================================

// BenchmarkToNumber benchmarks numeric conversion of text cells.
// Every number column of every loaded file goes through it.
func BenchmarkToNumber(b *testing.B) {
	testCases := []any{
		"123",
		"-456,78",                // French decimal comma
		"1 234 567,89",           // Space thousands separators
		"1\u00a0500,00 \u20ac", // NBSP and currency
		"  999.99  ",
		int64(42),
		"n/a",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ToNumber(tc)
		}
	}
}

// BenchmarkToNumber_Simple benchmarks the most common case: plain integers.
func BenchmarkToNumber_Simple(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ToNumber("12345")
	}
}

// BenchmarkToDate benchmarks date parsing across the layouts seen in
// published files.
func BenchmarkToDate(b *testing.B) {
	testCases := []any{
		"2024-01-15",
		"15/01/2024",
		"2024-01-15T10:30:00+01:00",
		"20240115",
		"not a date",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ToDate(tc)
		}
	}
}

// BenchmarkToBool benchmarks boolean conversion.
func BenchmarkToBool(b *testing.B) {
	testCases := []any{"true", "Oui", "non", "1", "0", "maybe"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ToBool(tc)
		}
	}
}

// ============================================================================
// Cleaning Benchmarks
// ============================================================================

// BenchmarkCleanValue benchmarks enum comparison cleaning.
// Runs once per filtered cell.
func BenchmarkCleanValue(b *testing.B) {
	testCases := []string{
		"Appel d'offres ouvert",
		"APPEL D’OFFRES OUVERT",
		"Procédure adaptée",
		"  Marché  ",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			CleanValue(tc)
		}
	}
}

// BenchmarkCleanColumnName benchmarks positional index stripping.
func BenchmarkCleanColumnName(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		CleanColumnName("titulaires.12.denominationSociale")
	}
}

// BenchmarkNormalizeSIREN benchmarks SIREN normalization.
func BenchmarkNormalizeSIREN(b *testing.B) {
	testCases := []any{"213800000", "21380000", int64(213800000), "213 800 000", "12AB"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			NormalizeSIREN(tc)
		}
	}
}

// BenchmarkToUTF8_LargeDataset benchmarks charset detection on a large
// Windows-1252 export.
func BenchmarkToUTF8_LargeDataset(b *testing.B) {
	var buf bytes.Buffer
	for i := 0; i < 10000; i++ {
		fmt.Fprintf(&buf, "%d;R\xe9gion;D\xe9partement;1 000,50\n", i)
	}
	data := buf.Bytes()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ToUTF8(data)
	}
}

// ============================================================================
// Parallel Benchmarks
// ============================================================================

// BenchmarkToNumberParallel benchmarks parallel numeric conversion.
func BenchmarkToNumberParallel(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			ToNumber("1 234,56")
		}
	})
}

// BenchmarkToDateParallel benchmarks parallel date parsing.
func BenchmarkToDateParallel(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			ToDate("15/01/2024")
		}
	})
}

// ============================================================================
// Memory Allocation Benchmarks
// ============================================================================

// BenchmarkConversionsAllocs measures allocations in conversion functions.
func BenchmarkConversionsAllocs(b *testing.B) {
	b.Run("ToNumber", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			ToNumber("1 234,56")
		}
	})

	b.Run("ToDate", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			ToDate("2024-01-15")
		}
	})

	b.Run("CleanCell", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			CleanCell("\ufeff Nom du bénéficiaire ")
		}
	})

	b.Run("Cast", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			Cast("2024", FieldYear)
		}
	})
}
