// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdf

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/sassoftware/viya-pdf-viewer/logger"
)

// Info holds the document metadata shown next to a viewed document.
type Info struct {
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Creator      string `json:"creator,omitempty"`
	Producer     string `json:"producer,omitempty"`
	CreationDate string `json:"creationDate,omitempty"`
	ModDate      string `json:"modDate,omitempty"`
	Version      string `json:"pdfVersion,omitempty"`
	Pages        int    `json:"pages"`
	HasXMP       bool   `json:"hasXMP"`
}

// XMP packet structure (namespaces are matched by URI).
type xmpPacket struct {
	XMLName xml.Name `xml:"xmpmeta"`
	RDF     struct {
		Descriptions []rdfDescription `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Description"`
	} `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# RDF"`
}

type rdfDescription struct {
	Title       rdfList `xml:"http://purl.org/dc/elements/1.1/ title"`
	Description rdfList `xml:"http://purl.org/dc/elements/1.1/ description"`
	Creator     rdfList `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Producer    string  `xml:"http://ns.adobe.com/pdf/1.3/ Producer"`
	CreatorTool string  `xml:"http://ns.adobe.com/xap/1.0/ CreatorTool"`
	CreateDate  string  `xml:"http://ns.adobe.com/xap/1.0/ CreateDate"`
	ModifyDate  string  `xml:"http://ns.adobe.com/xap/1.0/ ModifyDate"`
}

// rdfList matches rdf:Alt, rdf:Seq and rdf:Bag containers alike.
type rdfList struct {
	Alt []string `xml:"Alt>li"`
	Seq []string `xml:"Seq>li"`
	Bag []string `xml:"Bag>li"`
}

func (l rdfList) items() []string {
	out := append([]string{}, l.Alt...)
	out = append(out, l.Seq...)
	return append(out, l.Bag...)
}

func (l rdfList) first() string {
	for _, s := range l.items() {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func prefer(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// Info returns the document metadata. XMP values take precedence over the
// /Info dictionary when both are present.
func (r *Reader) Info() Info {
	info := r.Trailer().Key("Info")
	out := Info{
		Title:        info.Key("Title").Text(),
		Author:       info.Key("Author").Text(),
		Subject:      info.Key("Subject").Text(),
		Creator:      info.Key("Creator").Text(),
		Producer:     info.Key("Producer").Text(),
		CreationDate: info.Key("CreationDate").Text(),
		ModDate:      info.Key("ModDate").Text(),
		Version:      r.Version(),
		Pages:        r.NumPage(),
	}

	md := r.Trailer().Key("Root").Key("Metadata")
	if md.Kind() != Stream {
		return out
	}
	out.HasXMP = true
	rc := md.Reader()
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		logger.Debug("reading XMP stream", "err", err)
		return out
	}
	d, ok := parseXMP(raw)
	if !ok {
		return out
	}
	out.Title = prefer(d.Title.first(), out.Title)
	out.Author = prefer(d.Creator.first(), out.Author)
	out.Subject = prefer(d.Description.first(), out.Subject)
	out.Creator = prefer(d.CreatorTool, out.Creator)
	out.Producer = prefer(d.Producer, out.Producer)
	out.CreationDate = prefer(d.CreateDate, out.CreationDate)
	out.ModDate = prefer(d.ModifyDate, out.ModDate)
	return out
}

// parseXMP merges all rdf:Description blocks of an XMP packet.
func parseXMP(raw []byte) (rdfDescription, bool) {
	var pkt xmpPacket
	dec := xml.NewDecoder(strings.NewReader(string(raw)))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity
	if err := dec.Decode(&pkt); err != nil {
		logger.Debug("malformed XMP packet", "err", err)
		return rdfDescription{}, false
	}
	var out rdfDescription
	for _, d := range pkt.RDF.Descriptions {
		if len(d.Title.items()) > 0 {
			out.Title = d.Title
		}
		if len(d.Description.items()) > 0 {
			out.Description = d.Description
		}
		if len(d.Creator.items()) > 0 {
			out.Creator = d.Creator
		}
		out.Producer = prefer(strings.TrimSpace(d.Producer), out.Producer)
		out.CreatorTool = prefer(strings.TrimSpace(d.CreatorTool), out.CreatorTool)
		out.CreateDate = prefer(strings.TrimSpace(d.CreateDate), out.CreateDate)
		out.ModifyDate = prefer(strings.TrimSpace(d.ModifyDate), out.ModifyDate)
	}
	return out, true
}
