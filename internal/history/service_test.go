package history

import (
	"bytes"
	"encoding/base64"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/zombor/ocr-extract/internal/extraction"
)

var _ = Describe("Service", func() {
	var (
		db      *BoltDB
		storage *LocalStorage
		clock   *manualClock
		svc     *Service
		req     *extraction.Request
	)

	BeforeEach(func() {
		tmpDir := GinkgoT().TempDir()
		var err error
		db, err = NewBoltDB(filepath.Join(tmpDir, "history.db"))
		Expect(err).NotTo(HaveOccurred())
		storage, err = NewLocalStorage(filepath.Join(tmpDir, "documents"))
		Expect(err).NotTo(HaveOccurred())

		clock = &manualClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
		svc = NewServiceWithDeps(db, storage, &sequenceIDGenerator{}, clock)

		req = &extraction.Request{
			ImageBase64: "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png bytes")),
			FileName:    "Bill (March).png",
			FileType:    "image/png",
			FileSize:    9,
		}
	})

	AfterEach(func() {
		db.Close()
	})

	Describe("RecordResult", func() {
		It("stores the result and archives the document", func() {
			record, err := svc.RecordResult(req, newResult("result-1", extraction.DocumentBill, 0.8, 900))
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Filename).To(Equal("result-1_Bill_March.png"))
			Expect(record.ContentType).To(Equal("image/png"))
			Expect(record.CreatedAt).To(Equal(clock.now))

			data, contentType, err := svc.GetResultFile("result-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("png bytes")))
			Expect(contentType).To(Equal("image/png"))
		})

		When("the payload cannot be decoded", func() {
			BeforeEach(func() {
				req.ImageBase64 = "***"
			})

			It("still stores the result without a document", func() {
				record, err := svc.RecordResult(req, newResult("result-1", extraction.DocumentBill, 0.8, 900))
				Expect(err).NotTo(HaveOccurred())
				Expect(record.Filename).To(BeEmpty())

				_, err = svc.GetResult("result-1")
				Expect(err).NotTo(HaveOccurred())
				_, _, err = svc.GetResultFile("result-1")
				Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
			})
		})

		When("the database rejects the record", func() {
			BeforeEach(func() {
				svc = NewServiceWithDeps(&failingSaveDB{DB: db}, storage, &sequenceIDGenerator{}, clock)
			})

			It("removes the archived document", func() {
				_, err := svc.RecordResult(req, newResult("result-1", extraction.DocumentBill, 0.8, 900))
				Expect(err).To(MatchError(ContainSubstring("disk full")))

				_, err = storage.Get("result-1_Bill_March.png")
				Expect(err).To(HaveOccurred())
			})

			It("logs a document that cannot be removed", func() {
				var logs bytes.Buffer
				previous := slog.Default()
				slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
				DeferCleanup(func() { slog.SetDefault(previous) })

				stubborn := &stubbornStorage{Storage: storage}
				svc = NewServiceWithDeps(&failingSaveDB{DB: db}, stubborn, &sequenceIDGenerator{}, clock)

				_, err := svc.RecordResult(req, newResult("result-1", extraction.DocumentBill, 0.8, 900))
				Expect(err).To(HaveOccurred())
				Expect(stubborn.deleted).To(Equal([]string{"result-1_Bill_March.png"}))
				Expect(logs.String()).To(ContainSubstring("level=WARN"))
				Expect(logs.String()).To(ContainSubstring("Failed to remove archived document after save failure"))
				Expect(logs.String()).To(ContainSubstring("permission denied"))
			})
		})

		When("no storage is configured", func() {
			BeforeEach(func() {
				svc = NewServiceWithDeps(db, nil, &sequenceIDGenerator{}, clock)
			})

			It("stores the result only", func() {
				record, err := svc.RecordResult(req, newResult("result-1", extraction.DocumentBill, 0.8, 900))
				Expect(err).NotTo(HaveOccurred())
				Expect(record.Filename).To(BeEmpty())
			})
		})
	})

	Describe("RecordFailure", func() {
		It("stores the failed job", func() {
			failure, err := svc.RecordFailure(req, &extraction.Error{
				Code:    extraction.CodeRateLimited,
				Message: "Service is busy. Please try again in a moment.",
				Status:  429,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(failure.ID).To(Equal("failure-1"))
			Expect(failure.Status).To(Equal(extraction.StatusFailed))
			Expect(failure.FileName).To(Equal("Bill (March).png"))
			Expect(failure.FileSize).To(Equal(int64(9)))

			failures, err := svc.ListFailures(20)
			Expect(err).NotTo(HaveOccurred())
			Expect(failures).To(HaveLen(1))
			Expect(failures[0].Code).To(Equal(extraction.CodeRateLimited))
		})
	})

	Describe("ListResults", func() {
		BeforeEach(func() {
			for i, id := range []string{"oldest", "middle", "newest"} {
				clock.now = time.Date(2025, 3, 10, 9, i, 0, 0, time.UTC)
				_, err := svc.RecordResult(req, newResult(id, extraction.DocumentReceipt, 0.5, 100))
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("returns results newest first", func() {
			results, err := svc.ListResults(0)
			Expect(err).NotTo(HaveOccurred())
			ids := []string{}
			for _, r := range results {
				ids = append(ids, r.ID)
			}
			Expect(ids).To(Equal([]string{"newest", "middle", "oldest"}))
		})

		It("honours the limit", func() {
			results, err := svc.ListResults(2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("newest"))
		})
	})

	Describe("DeleteResult", func() {
		BeforeEach(func() {
			_, err := svc.RecordResult(req, newResult("result-1", extraction.DocumentBill, 0.8, 900))
			Expect(err).NotTo(HaveOccurred())
		})

		It("removes the result and its document", func() {
			Expect(svc.DeleteResult("result-1")).To(Succeed())

			_, err := svc.GetResult("result-1")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
			_, err = storage.Get("result-1_Bill_March.png")
			Expect(err).To(HaveOccurred())
		})

		It("reports unknown IDs as not found", func() {
			err := svc.DeleteResult("ghost")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})
	})

	Describe("Statistics", func() {
		BeforeEach(func() {
			record := func(day int, id, documentType string, confidence float64, durationMs int64) {
				clock.now = time.Date(2025, 3, day, 12, 0, 0, 0, time.UTC)
				_, err := svc.RecordResult(req, newResult(id, documentType, confidence, durationMs))
				Expect(err).NotTo(HaveOccurred())
			}
			record(8, "a", extraction.DocumentInvoice, 0.9, 1000)
			record(8, "b", extraction.DocumentInvoice, 0.5, 3000)
			record(10, "c", extraction.DocumentReceipt, 0.7, 500)
			record(1, "too-old", extraction.DocumentReceipt, 0.7, 500)

			clock.now = time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
			_, err := svc.RecordFailure(req, &extraction.Error{Code: extraction.CodeParse})
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns one entry per day, oldest first", func() {
			stats, err := svc.Statistics(3)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats).To(HaveLen(3))
			Expect(stats[0].Date).To(Equal("2025-03-08"))
			Expect(stats[1].Date).To(Equal("2025-03-09"))
			Expect(stats[2].Date).To(Equal("2025-03-10"))
		})

		It("aggregates each day", func() {
			stats, err := svc.Statistics(3)
			Expect(err).NotTo(HaveOccurred())

			Expect(stats[0].TotalDocuments).To(Equal(2))
			Expect(stats[0].Successful).To(Equal(2))
			Expect(stats[0].AverageConfidence).To(BeNumerically("~", 0.7, 1e-9))
			Expect(stats[0].AverageProcessingMs).To(Equal(2000.0))
			Expect(stats[0].DocumentTypes).To(Equal(map[string]int{"invoice": 2}))

			Expect(stats[1].TotalDocuments).To(BeZero())
			Expect(stats[1].DocumentTypes).To(BeEmpty())

			Expect(stats[2].TotalDocuments).To(Equal(2))
			Expect(stats[2].Successful).To(Equal(1))
			Expect(stats[2].Failed).To(Equal(1))
			Expect(stats[2].DocumentTypes).To(Equal(map[string]int{"receipt": 1}))
		})

		It("rejects a non-positive window", func() {
			_, err := svc.Statistics(0)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ExportXLSX", func() {
		BeforeEach(func() {
			_, err := svc.RecordResult(req, newResult("result-1", extraction.DocumentInvoice, 0.9, 1200))
			Expect(err).NotTo(HaveOccurred())
		})

		It("writes a header row and one row per result", func() {
			data, err := svc.ExportXLSX()
			Expect(err).NotTo(HaveOccurred())

			f, err := excelize.OpenReader(bytes.NewReader(data))
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()

			rows, err := f.GetRows(exportSheet)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))
			Expect(rows[0]).To(Equal(exportHeaders))
			Expect(rows[1][0]).To(Equal("result-1"))
			Expect(rows[1][3]).To(Equal("invoice"))
			Expect(rows[1][5]).To(Equal("Croma"))
			Expect(rows[1][13]).To(Equal("1499"))
			Expect(rows[1][14]).To(Equal("INR"))
		})

		It("reports a row that cannot be written", func() {
			f := excelize.NewFile()
			defer f.Close()

			Expect(writeRow(f, "Missing", 1, []any{"a"})).To(MatchError(ContainSubstring("writing cell A1")))
			Expect(writeRow(f, "Sheet1", 0, []any{"a"})).To(MatchError(ContainSubstring("addressing cell")))
			Expect(writeRow(f, "Sheet1", 1, []any{"a", 2.5})).To(Succeed())
		})
	})
})
