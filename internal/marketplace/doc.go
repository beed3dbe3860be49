// Package marketplace talks to the Visual Studio Marketplace. It scrapes the
// latest published version of an extension from its public listing page and
// downloads .vsix packages, decompressing the gzip stream the gallery serves
// and naming the file after the server's Content-Disposition header.
package marketplace
