package paths_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rancher/commit-on-branch-action/internal/paths"
)

var _ = Describe("Paths", func() {
	Describe("Normalize", func() {
		It("drops empty entries and duplicates, keeping first occurrence order", func() {
			Expect(paths.Normalize([]string{"a", "a", "", "b"})).To(Equal([]string{"a", "b"}))
		})

		It("is idempotent", func() {
			input := []string{"dir/b.txt", "", "a.txt", "dir/b.txt", "c.txt", "a.txt"}
			once := paths.Normalize(input)
			Expect(once).To(Equal([]string{"dir/b.txt", "a.txt", "c.txt"}))
			Expect(paths.Normalize(once)).To(Equal(once))
		})

		It("returns an empty, non-nil list for nil input", func() {
			result := paths.Normalize(nil)
			Expect(result).NotTo(BeNil())
			Expect(result).To(BeEmpty())
		})

		It("keeps whitespace-only paths untouched", func() {
			Expect(paths.Normalize([]string{" ", "a"})).To(Equal([]string{" ", "a"}))
		})
	})

	Describe("ParseList", func() {
		It("splits on newlines and drops blank lines", func() {
			raw := "a.txt\ndir/b.txt\r\n\n  \nc.txt"
			Expect(paths.ParseList(raw)).To(Equal([]string{"a.txt", "dir/b.txt", "c.txt"}))
		})

		It("keeps commas and surrounding spaces as part of a path", func() {
			Expect(paths.ParseList("notes, draft.txt")).To(Equal([]string{"notes, draft.txt"}))
			Expect(paths.ParseList(" padded.txt \nb.txt")).To(Equal([]string{" padded.txt ", "b.txt"}))
		})

		It("returns an empty list for blank input", func() {
			Expect(paths.ParseList("  \n ")).To(BeEmpty())
		})
	})

	Describe("ParseLists", func() {
		It("flattens repeated flag values", func() {
			Expect(paths.ParseLists([]string{"a.txt\nb.txt", "c.txt"})).To(Equal([]string{"a.txt", "b.txt", "c.txt"}))
		})
	})

	Describe("Merge", func() {
		It("concatenates groups and removes duplicates across them", func() {
			merged := paths.Merge([]string{"a", "b"}, []string{"b", "c"}, nil, []string{"", "a"})
			Expect(merged).To(Equal([]string{"a", "b", "c"}))
		})
	})

	Describe("Overlap", func() {
		It("reports paths present in both lists", func() {
			Expect(paths.Overlap([]string{"a", "b", "c", "b"}, []string{"c", "b"})).To(Equal([]string{"b", "c"}))
		})

		It("returns nil when either side is empty", func() {
			Expect(paths.Overlap(nil, []string{"a"})).To(BeNil())
			Expect(paths.Overlap([]string{"a"}, nil)).To(BeNil())
		})
	})
})
