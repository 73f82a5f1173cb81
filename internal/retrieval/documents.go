package retrieval

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/spherical-ai/phone-advisor/internal/catalog"
)

// documentNamespace scopes deterministic document IDs.
var documentNamespace = uuid.MustParse("6f1c2a7e-3d4b-5a69-8e0f-1b2c3d4e5f60")

// Document is the retrieval view of one phone.
type Document struct {
	ID       uuid.UUID
	Position int
	Content  string
	Metadata map[string]any
}

// BuildDocuments renders one document per phone, in catalog order.
func BuildDocuments(phones []catalog.Phone) []Document {
	docs := make([]Document, len(phones))
	for i, p := range phones {
		docs[i] = Document{
			ID:       uuid.NewSHA1(documentNamespace, []byte(strconv.Itoa(i)+"|"+p.Name)),
			Position: i,
			Content:  DocumentContent(p),
			Metadata: map[string]any{
				"name":    p.Name,
				"brand":   p.Brand,
				"model":   p.Model,
				"price":   p.Price,
				"battery": p.Battery,
				"ram":     p.RAM,
				"storage": p.StorageGB,
				"os":      p.OS,
			},
		}
	}
	return docs
}

// DocumentContent is the text embedded for a phone.
func DocumentContent(p catalog.Phone) string {
	return fmt.Sprintf("%s %s %s with %dmAh battery, %s inch screen, %dMB RAM, %dMP rear camera",
		p.Name, p.Brand, p.Model, p.Battery,
		strconv.FormatFloat(p.Screen, 'f', -1, 64), p.RAM, p.CameraMP)
}
