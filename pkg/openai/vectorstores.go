package openai

import (
	"context"
	"time"

	"github.com/jaffee/respcli/pkg/upload"
	"github.com/jaffee/respcli/pkg/vectorstore"
	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

var _ vectorstore.Service = &Client{}
var _ upload.Remote = &Client{}

const pageSize = 100

// Register uploads file content and returns the new file's ID.
func (c *Client) Register(ctx context.Context, name string, content []byte, purpose string) (string, error) {
	file, err := c.subclient.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    name,
		Bytes:   content,
		Purpose: openai.PurposeType(purpose),
	})
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	return file.ID, nil
}

// Attach adds a file to a vector store and returns its processing status.
func (c *Client) Attach(ctx context.Context, destinationID, contentID string) (string, error) {
	vsf, err := c.subclient.CreateVectorStoreFile(ctx, destinationID, openai.VectorStoreFileRequest{
		FileID: contentID,
	})
	if err != nil {
		return "", errors.Wrap(err, "attaching file")
	}
	return vsf.Status, nil
}

func (c *Client) CreateStore(ctx context.Context, name string) (vectorstore.Store, error) {
	vs, err := c.subclient.CreateVectorStore(ctx, openai.VectorStoreRequest{Name: name})
	if err != nil {
		return vectorstore.Store{}, errors.Wrap(err, "creating vector store")
	}
	return toStore(vs), nil
}

func (c *Client) ListStores(ctx context.Context) ([]vectorstore.Store, error) {
	var ret []vectorstore.Store
	var after *string
	for {
		list, err := c.subclient.ListVectorStores(ctx, pagination(after))
		if err != nil {
			return nil, errors.Wrap(err, "listing vector stores")
		}
		for _, vs := range list.VectorStores {
			ret = append(ret, toStore(vs))
		}
		if !list.HasMore || list.LastID == nil {
			return ret, nil
		}
		after = list.LastID
	}
}

func (c *Client) DeleteStore(ctx context.Context, storeID string) error {
	resp, err := c.subclient.DeleteVectorStore(ctx, storeID)
	if err != nil {
		return errors.Wrap(err, "deleting vector store")
	}
	if !resp.Deleted {
		return errors.Errorf("vector store '%s' was not deleted", storeID)
	}
	return nil
}

func (c *Client) ListFiles(ctx context.Context, storeID string) ([]vectorstore.File, error) {
	var ret []vectorstore.File
	var after *string
	for {
		list, err := c.subclient.ListVectorStoreFiles(ctx, storeID, pagination(after))
		if err != nil {
			return nil, errors.Wrap(err, "listing vector store files")
		}
		for _, f := range list.VectorStoreFiles {
			ret = append(ret, vectorstore.File{
				ID:         f.ID,
				Status:     f.Status,
				CreatedAt:  time.Unix(int64(f.CreatedAt), 0),
				UsageBytes: int64(f.UsageBytes),
			})
		}
		if !list.HasMore || list.LastID == nil {
			return ret, nil
		}
		after = list.LastID
	}
}

func (c *Client) DeleteFile(ctx context.Context, storeID, fileID string) error {
	return errors.Wrap(c.subclient.DeleteVectorStoreFile(ctx, storeID, fileID), "deleting vector store file")
}

func pagination(after *string) openai.Pagination {
	limit := pageSize
	return openai.Pagination{Limit: &limit, After: after}
}

func toStore(vs openai.VectorStore) vectorstore.Store {
	return vectorstore.Store{
		ID:         vs.ID,
		Name:       vs.Name,
		CreatedAt:  time.Unix(int64(vs.CreatedAt), 0),
		Status:     vs.Status,
		UsageBytes: int64(vs.UsageBytes),
		FileCounts: vectorstore.FileCounts{
			InProgress: vs.FileCounts.InProgress,
			Completed:  vs.FileCounts.Completed,
			Failed:     vs.FileCounts.Failed,
			Cancelled:  vs.FileCounts.Cancelled,
			Total:      vs.FileCounts.Total,
		},
	}
}
