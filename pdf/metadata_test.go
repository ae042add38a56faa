// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdf

import (
	"testing"

	"github.com/sassoftware/viya-pdf-viewer/pdf/pdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfo(t *testing.T) {
	r := open(t, pdftest.BuildWithOptions(pdftest.Options{Title: "Level 2 (north wing)"}, twoPages()...))
	info := r.Info()
	assert.Equal(t, "Level 2 (north wing)", info.Title)
	assert.Equal(t, "pdftest", info.Producer)
	assert.Equal(t, "1.7", info.Version)
	assert.Equal(t, 2, info.Pages)
	assert.False(t, info.HasXMP)
}

func TestParseXMP(t *testing.T) {
	xmp := `<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description xmlns:dc="http://purl.org/dc/elements/1.1/">
   <dc:title><rdf:Alt><rdf:li xml:lang="x-default">Site Plan</rdf:li></rdf:Alt></dc:title>
   <dc:creator><rdf:Seq><rdf:li>J. Architect</rdf:li></rdf:Seq></dc:creator>
  </rdf:Description>
  <rdf:Description xmlns:pdf="http://ns.adobe.com/pdf/1.3/" xmlns:xmp="http://ns.adobe.com/xap/1.0/">
   <pdf:Producer>CAD Export 9</pdf:Producer>
   <xmp:CreateDate>2026-01-05T10:00:00Z</xmp:CreateDate>
  </rdf:Description>
 </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>`

	d, ok := parseXMP([]byte(xmp))
	require.True(t, ok)
	assert.Equal(t, "Site Plan", d.Title.first())
	assert.Equal(t, "J. Architect", d.Creator.first())
	assert.Equal(t, "CAD Export 9", d.Producer)
	assert.Equal(t, "2026-01-05T10:00:00Z", d.CreateDate)

	_, ok = parseXMP([]byte(`<xmpmeta><not-closed>`))
	assert.False(t, ok)
}
