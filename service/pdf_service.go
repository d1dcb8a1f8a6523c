package service

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tieubaoca/arxiv-rag/logger"
	"github.com/tieubaoca/arxiv-rag/types"
	"github.com/tieubaoca/arxiv-rag/utils"
	"golang.org/x/time/rate"
)

// TextExtractor returns the full text of the document at link, pages
// joined by blank lines in page order.
type TextExtractor interface {
	Extract(ctx context.Context, link string) (string, error)
}

// PDFService downloads papers and extracts their text with poppler's
// pdftotext, falling back to tesseract OCR for pages without a text layer.
type PDFService struct {
	httpClient  *http.Client
	downloadDir string
	ocrLanguage string
	limiter     *rate.Limiter
}

func NewPDFService(downloadDir, ocrLanguage string, limiter *rate.Limiter) *PDFService {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if ocrLanguage == "" {
		ocrLanguage = "eng"
	}
	return &PDFService{
		httpClient:  &http.Client{Timeout: 2 * time.Minute},
		downloadDir: downloadDir,
		ocrLanguage: ocrLanguage,
		limiter:     limiter,
	}
}

func (s *PDFService) Extract(ctx context.Context, link string) (string, error) {
	path := link
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}
		downloaded, err := utils.DownloadFile(ctx, s.httpClient, link, s.downloadDir, "paper-*.pdf")
		if err != nil {
			return "", fmt.Errorf("%w: %w", types.ErrExtraction, err)
		}
		defer os.Remove(downloaded)
		path = downloaded
	}

	totalPages, err := getNumPages(ctx, path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrExtraction, err)
	}
	logger.Debug("extracting %d pages from %s", totalPages, link)

	pages := make([]string, 0, totalPages)
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		text, err := s.extractText(ctx, path, pageNum)
		if err != nil {
			logger.Warn("failed to extract text from page %d of %s: %v", pageNum, link, err)
			continue
		}
		if text = cleanText(text); text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

func (s *PDFService) extractText(ctx context.Context, filePath string, pageNumber int) (string, error) {
	text, err := extractTextWithPdftotext(ctx, filePath, pageNumber)
	if err != nil || text == "" {
		text, err = s.extractTextWithTesseract(ctx, filePath, pageNumber)
		if err != nil {
			return "", fmt.Errorf("failed to extract text: %w", err)
		}
	}
	return text, nil
}

func extractTextWithPdftotext(ctx context.Context, path string, pageNumber int) (string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext", "-f", strconv.Itoa(pageNumber),
		"-l", strconv.Itoa(pageNumber),
		"-enc", "UTF-8", "-nopgbrk",
		path, "-")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext page %d: %w", pageNumber, err)
	}
	if trimmed := strings.TrimSpace(out.String()); trimmed != "" {
		return trimmed, nil
	}
	return "", fmt.Errorf("got nothing at page %d", pageNumber)
}

func (s *PDFService) extractTextWithTesseract(ctx context.Context, pdfPath string, pageNumber int) (string, error) {
	tempFolder, err := os.MkdirTemp("", "ocr-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempFolder)

	convertCmd := exec.CommandContext(ctx, "pdftoppm", "-f", strconv.Itoa(pageNumber), "-l", strconv.Itoa(pageNumber),
		"-png", pdfPath, filepath.Join(tempFolder, "page"))
	if err := convertCmd.Run(); err != nil {
		return "", fmt.Errorf("failed to render page %d: %w", pageNumber, err)
	}
	images, err := filepath.Glob(filepath.Join(tempFolder, "page-*.png"))
	if err != nil || len(images) == 0 {
		return "", fmt.Errorf("no image rendered for page %d", pageNumber)
	}

	ocrCmd := exec.CommandContext(ctx, "tesseract",
		images[0],
		"stdout",
		"-l", s.ocrLanguage,
		"--oem", "3",
		"--psm", "3",
	)
	var ocrOut bytes.Buffer
	ocrCmd.Stdout = &ocrOut
	if err := ocrCmd.Run(); err != nil {
		return "", fmt.Errorf("failed to run tesseract: %w", err)
	}
	if trimmed := strings.TrimSpace(ocrOut.String()); trimmed != "" {
		return trimmed, nil
	}
	return "", fmt.Errorf("got nothing at page %d", pageNumber)
}

var pagesRe = regexp.MustCompile(`Pages:\s+(\d+)`)

// getNumPages reads the page count reported by pdfinfo.
func getNumPages(ctx context.Context, pdfPath string) (int, error) {
	cmd := exec.CommandContext(ctx, "pdfinfo", pdfPath)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("error running pdfinfo: %w", err)
	}
	return parsePageCount(&out)
}

func parsePageCount(out *bytes.Buffer) (int, error) {
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		if matches := pagesRe.FindStringSubmatch(scanner.Text()); len(matches) == 2 {
			return strconv.Atoi(matches[1])
		}
	}
	return 0, fmt.Errorf("unable to determine page count from pdfinfo")
}

var textReplacer = strings.NewReplacer(
	"\u0000", "",
	"�", "",
	"\u001b", "",
	"\r", "",
	"\f", "\n",
	"‡", "",
	"†", "",
)

var multiSpaceRe = regexp.MustCompile(`[ \t]{2,}`)

func cleanText(text string) string {
	cleaned := textReplacer.Replace(text)
	cleaned = multiSpaceRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
